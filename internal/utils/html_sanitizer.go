package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTMLSanitizer cleans user supplied text before it leaves the form and
// before it is echoed back into a page.
type HTMLSanitizer struct {
	strict  *bluemonday.Policy
	preview *bluemonday.Policy
	md      goldmark.Markdown
}

// NewHTMLSanitizer creates a sanitizer with a strict policy for submitted
// fields and a formatting-only policy for rendered previews.
func NewHTMLSanitizer() *HTMLSanitizer {
	p := bluemonday.NewPolicy()

	// Basic formatting
	p.AllowElements("b", "strong", "i", "em", "u", "s", "del")

	// Paragraphs and breaks
	p.AllowElements("p", "br")

	// Lists, quotes and code
	p.AllowElements("ul", "ol", "li", "blockquote", "code", "pre")

	// Links (with safe attributes only)
	p.AllowElements("a")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &HTMLSanitizer{
		strict:  bluemonday.StrictPolicy(),
		preview: p,
		md:      goldmark.New(goldmark.WithExtensions(extension.Linkify)),
	}
}

// StripHTML removes all markup from s and returns plain text. Entities the
// strict policy escapes are turned back into characters so the ticket body
// reads as typed.
func (s *HTMLSanitizer) StripHTML(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(text)))
}

// Preview renders markdown text to HTML that is safe to embed in a page.
func (s *HTMLSanitizer) Preview(markdown string) string {
	var buf strings.Builder
	if err := s.md.Convert([]byte(markdown), &buf); err != nil {
		return s.preview.Sanitize(html.EscapeString(markdown))
	}
	return s.preview.Sanitize(buf.String())
}

// IsHTML checks if the content appears to contain markup
func IsHTML(content string) bool {
	htmlTags := []string{"<p>", "<br", "<div", "<span", "<b>", "<i>", "<strong>", "<em>", "<script", "<a ", "<img "}

	contentLower := strings.ToLower(content)
	for _, tag := range htmlTags {
		if strings.Contains(contentLower, tag) {
			return true
		}
	}

	return false
}
