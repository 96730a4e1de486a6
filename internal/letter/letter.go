// Package letter renders the email body sent with each certificate.
//
// A body template is an HTML or Markdown file with optional YAML
// frontmatter. Markdown (.md, .markdown) is converted to HTML with goldmark.
// The placeholder token is replaced with the HTML-escaped recipient name; a
// "subject" frontmatter key overrides the configured subject.
package letter

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"certmailer/internal/failure"
	"certmailer/internal/markdown"
)

// DefaultPlaceholder is the token replaced with the recipient name.
const DefaultPlaceholder = "NAME_PLACEHOLDER"

//go:embed default.html
var defaultBody string

// Template is a parsed body template.
type Template struct {
	Subject     string // frontmatter override, may be empty
	Placeholder string
	html        string
}

// Load reads the template at path. An empty path selects the built-in body.
// Errors wrap failure.ErrConfiguration since a broken template stops every send.
func Load(path, placeholder string) (*Template, error) {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	if path == "" {
		return &Template{Placeholder: placeholder, html: defaultBody}, nil
	}
	doc, err := markdown.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: email template %s: %w", failure.ErrConfiguration, path, err)
	}
	body := doc.Body
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(body), &buf); err != nil {
			return nil, fmt.Errorf("%w: email template %s: %w", failure.ErrConfiguration, path, err)
		}
		body = buf.String()
	}
	return &Template{Subject: doc.String("subject"), Placeholder: placeholder, html: body}, nil
}

// Body returns the HTML body for name.
func (t *Template) Body(name string) string {
	return strings.ReplaceAll(t.html, t.Placeholder, html.EscapeString(name))
}

// SubjectFor returns the subject for one recipient: the frontmatter subject
// when present, otherwise fallback, with variables expanded.
func (t *Template) SubjectFor(fallback string, v Vars) string {
	s := fallback
	if t.Subject != "" {
		s = t.Subject
	}
	return ExpandVars(s, v)
}

// Vars are the values available to ExpandVars.
type Vars struct {
	Name  string
	Email string
	Now   time.Time
}

// ExpandVars performs simple placeholder substitutions in config-provided
// text such as the email subject.
//
// Supported variables:
// - {.Name}        => recipient name
// - {.Email}       => recipient email
// - {.CurrentDate} => formatted as YYYY-MM-DD (UTC)
func ExpandVars(s string, v Vars) string {
	if strings.TrimSpace(s) == "" {
		return s
	}
	r := strings.NewReplacer(
		"{.Name}", v.Name,
		"{.Email}", v.Email,
		"{.CurrentDate}", v.Now.UTC().Format("2006-01-02"),
	)
	return r.Replace(s)
}
