// Package render converts lightweight markup into the stored content format.
package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders Markdown source to HTML, the format the document store
// keeps as node content. No sanitization happens beyond goldmark's own
// escaping; the editor consuming the content handles its own safety.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown constructs a renderer with GitHub-flavored tables and strikethrough.
func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render converts one Markdown document to HTML.
func (r *Markdown) Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
