// Package render turns processed markdown into HTML.
package render

import (
	"bytes"
	"html"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown text to markup. Implementations must be pure
// and must not fail.
type Renderer interface {
	Render(text string) string
}

// Options configures the goldmark renderer.
type Options struct {
	HardWraps  bool
	XHTML      bool
	UnsafeHTML bool
	// Extensions names goldmark extensions to enable; empty selects GFM.
	Extensions []string
}

// DefaultOptions mirrors the classic markdown-it setup: raw HTML allowed,
// self-closing void tags, newlines rendered as <br />.
func DefaultOptions() Options {
	return Options{HardWraps: true, XHTML: true, UnsafeHTML: true}
}

// Goldmark renders with a preconfigured goldmark instance. It is safe for
// concurrent use.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark builds a renderer. Unknown extension names are ignored.
func NewGoldmark(opts Options) *Goldmark {
	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, gmhtml.WithHardWraps())
	}
	if opts.XHTML {
		rendererOptions = append(rendererOptions, gmhtml.WithXHTML())
	}
	if opts.UnsafeHTML {
		rendererOptions = append(rendererOptions, gmhtml.WithUnsafe())
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithExtensions(collectExtensions(opts.Extensions)...),
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}

	return &Goldmark{md: goldmark.New(engineOptions...)}
}

// Render converts text to HTML. Goldmark only fails on writer errors, which a
// bytes.Buffer never returns; the escaped fallback keeps the contract total.
func (g *Goldmark) Render(text string) string {
	var buf bytes.Buffer
	if err := g.md.Convert([]byte(text), &buf); err != nil {
		slog.Warn("Markdown conversion failed, emitting escaped text", slog.String("error", err.Error()))
		return "<pre>" + html.EscapeString(text) + "</pre>\n"
	}
	return buf.String()
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":           extension.GFM,
	"table":         extension.Table,
	"tables":        extension.Table,
	"strikethrough": extension.Strikethrough,
	"linkify":       extension.Linkify,
	"autolink":      extension.Linkify,
	"tasklist":      extension.TaskList,
	"definition":    extension.DefinitionList,
	"footnote":      extension.Footnote,
	"typographer":   extension.Typographer,
}

// ExtensionNames lists the accepted extension names.
func ExtensionNames() []string {
	names := make([]string, 0, len(extensionRegistry))
	for name := range extensionRegistry {
		names = append(names, name)
	}
	return names
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			slog.Debug("Ignoring unknown markdown extension", slog.String("extension", name))
			continue
		}
		seen[key] = struct{}{}
		extenders = append(extenders, ext)
	}
	return extenders
}

// Func adapts a plain function to Renderer.
type Func func(text string) string

func (f Func) Render(text string) string { return f(text) }
