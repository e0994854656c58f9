package markdown

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Engine names accepted by RenderWith.
const (
	EngineLite     = "lite"
	EngineGoldmark = "goldmark"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
		html.WithUnsafe(),
	),
)

// RenderFull converts CommonMark with GitHub extensions to HTML.
func RenderFull(markdownText string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdownText), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderWith dispatches to the named engine. An empty engine means lite.
func RenderWith(engine, markdownText string) (string, error) {
	switch engine {
	case "", EngineLite:
		return Render(markdownText), nil
	case EngineGoldmark:
		return RenderFull(markdownText)
	default:
		return "", fmt.Errorf("unknown markdown engine %q (want %s or %s)", engine, EngineLite, EngineGoldmark)
	}
}

// RenderTerminal styles markdown for an ANSI terminal.
func RenderTerminal(markdownText string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	return r.Render(markdownText)
}
