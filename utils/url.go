package utils

import (
	"net/url"
	"strings"
)

// SafeHTTPURL returns raw with spaces %20-encoded when it is an absolute
// http(s) URL, and "" otherwise. Provider payloads occasionally carry raw
// spaces or non-web schemes that must not reach the browser.
func SafeHTTPURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(strings.ReplaceAll(raw, " ", "%20"))
	if err != nil || parsed.Host == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return ""
	}
	return parsed.String()
}
