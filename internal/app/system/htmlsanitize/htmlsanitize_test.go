package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/investwest/internal/app/system/htmlsanitize"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		absent  []string
		present []string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain text", input: "Hello, World!", want: "Hello, World!"},
		{name: "formatting", input: "<p><strong>Bold</strong> and <em>italic</em></p>", want: "<p><strong>Bold</strong> and <em>italic</em></p>"},
		{name: "script", input: "<p>Hello</p><script>alert('xss')</script>", want: "<p>Hello</p>"},
		{name: "onclick", input: `<button onclick="alert('xss')">Click</button>`, absent: []string{"onclick"}},
		{name: "javascript href", input: `<a href="javascript:alert('xss')">Click</a>`, absent: []string{"javascript:"}},
		{name: "safe link", input: `<a href="https://example.com">Link</a>`, present: []string{"https://example.com"}},
		{name: "iframe", input: `<iframe src="https://evil.example"></iframe><p>x</p>`, absent: []string{"<iframe"}},
		{name: "form", input: `<form action="/submit"><input type="text"></form>`, absent: []string{"<form", "<input"}},
		{name: "onerror", input: `<img src="x" onerror="alert('xss')">`, absent: []string{"onerror"}},
		{name: "data url", input: `<img src="data:text/html,<script>alert(1)</script>">`, absent: []string{"data:text/html"}},
		{name: "table spans", input: `<table><tr><td colspan="2" rowspan="2">Cell</td></tr></table>`, present: []string{`colspan="2"`, `rowspan="2"`}},
		{name: "table style", input: `<table style="width:100%"><tr><td>Cell</td></tr></table>`, present: []string{"style="}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := htmlsanitize.Sanitize(tc.input)
			if tc.want != "" || tc.input == "" {
				if got != tc.want {
					t.Errorf("got %q, want %q", got, tc.want)
				}
			}
			for _, s := range tc.absent {
				if strings.Contains(got, s) {
					t.Errorf("expected %q removed, got %q", s, got)
				}
			}
			for _, s := range tc.present {
				if !strings.Contains(got, s) {
					t.Errorf("expected %q kept, got %q", s, got)
				}
			}
		})
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"  great pitch  ", "great pitch"},
		{"<b>bold</b> claim", "bold claim"},
		{"<script>alert(1)</script>ok", "ok"},
		{"A & B", "A & B"},
	}
	for _, tc := range tests {
		if got := htmlsanitize.StripTags(tc.in); got != tc.want {
			t.Errorf("StripTags(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Hello", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>Hello</p>", false},
	}
	for _, tc := range tests {
		if got := htmlsanitize.IsPlainText(tc.in); got != tc.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPrepareForStorage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"Line 1\nLine 2", "<p>Line 1<br>Line 2</p>"},
		{"A & B", "<p>A &amp; B</p>"},
		{"<p>Hello</p><script>alert('xss')</script>", "<p>Hello</p>"},
	}
	for _, tc := range tests {
		if got := htmlsanitize.PrepareForStorage(tc.in); got != tc.want {
			t.Errorf("PrepareForStorage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
