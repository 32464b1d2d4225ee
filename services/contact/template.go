package contact

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"spot/models"
)

//go:embed templates/*
var templateFS embed.FS

// submittedOnOffset matches the site owner's wall clock.
const submittedOnOffset = -5 * time.Hour

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("submission.html").
			Funcs(htmltemplate.FuncMap{"breaks": lineBreaks}).
			ParseFS(templateFS, "templates/submission.html"))
	textTmpl = texttemplate.Must(texttemplate.New("submission.txt").
			ParseFS(templateFS, "templates/submission.txt"))
)

type emailData struct {
	models.ContactSubmission
	SiteName    string
	SiteURL     string
	SiteHost    string
	SubmittedOn string
}

// FormatSubmittedOn renders t as "23 March, 20:12" on the owner's clock.
func FormatSubmittedOn(t time.Time) string {
	return t.UTC().Add(submittedOnOffset).Format("2 January, 15:04")
}

func lineBreaks(s string) htmltemplate.HTML {
	escaped := htmltemplate.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return htmltemplate.HTML(strings.ReplaceAll(escaped, "\n", "<br />"))
}

func siteHost(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return siteURL
	}
	return u.Host
}

// renderBodies returns the HTML and plain-text email bodies.
func renderBodies(sub models.ContactSubmission, siteName, siteURL string, now time.Time) (string, string, error) {
	data := emailData{
		ContactSubmission: sub,
		SiteName:          siteName,
		SiteURL:           siteURL,
		SiteHost:          siteHost(siteURL),
		SubmittedOn:       FormatSubmittedOn(now),
	}

	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	var text bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return html.String(), text.String(), nil
}
