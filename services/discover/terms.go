package discover

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// NormalizeTerms trims each term, upper-cases its first letter and drops empty
// and case-insensitive duplicate terms, keeping first-seen order.
func NormalizeTerms(terms []string) []string {
	folder := cases.Fold() // Casers are stateful; one per call
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		term = capitalizeFirst(term)
		key := folder.String(term)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, term)
	}
	return out
}

// SplitTerms splits comma-separated input, as typed into the interests field.
func SplitTerms(raw string) []string {
	return NormalizeTerms(strings.Split(raw, ","))
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
