// Package htmlsanitize cleans user-authored HTML before it is stored.
//
// Pitch presentations are rich text and go through Sanitize. Comment,
// reply and forum bodies are plain text and go through StripTags.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = newRichPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	tables := []string{"table", "thead", "tbody", "tfoot", "tr", "th", "td"}
	p.AllowAttrs("class").OnElements(tables...)
	p.AllowStyles("width", "text-align", "vertical-align").OnElements(tables...)
	return p
}

// Sanitize removes scripts, event handlers, unsafe URLs and form elements
// while keeping formatting, lists, links, images and tables.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richPolicy.Sanitize(s)
}

// StripTags removes all markup and returns trimmed text. Entities produced
// by the policy are unescaped so stored text matches what the user typed.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

// IsPlainText reports whether s contains no tag-like sequence.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForStorage normalizes a rich-text field: plain text is converted
// to HTML, markup is sanitized.
func PrepareForStorage(s string) string {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return PlainTextToHTML(s)
	}
	return Sanitize(s)
}
