// Package render turns backend answers (Markdown) into HTML that is safe to
// inject into the widget page.
package render

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New creates a Renderer with GitHub-flavoured Markdown and a UGC sanitizer policy.
func New() *Renderer {
	// Raw HTML is left for the sanitizer to strip.
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{md: md, policy: policy}
}

// Render parses raw as Markdown and returns sanitized markup.
// A Markdown conversion error falls back to sanitizing the raw text.
func (r *Renderer) Render(raw string) template.HTML {
	if raw == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(raw), &buf); err != nil {
		slog.Warn("markdown conversion failed, sanitizing raw text", "error", err)
		return template.HTML(r.policy.Sanitize(raw))
	}

	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}
