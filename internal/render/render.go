// Package render converts model-written markdown into HTML for clients.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// md is safe for concurrent use. Raw HTML in the source is omitted.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders text as HTML.
func Markdown(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// MarkdownOrEmpty renders text and drops rendering errors.
func MarkdownOrEmpty(text string) string {
	out, err := Markdown(text)
	if err != nil {
		return ""
	}
	return out
}
