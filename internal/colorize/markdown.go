package colorize

import (
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/x/exp/charmtone"
)

func boolPtr(b bool) *bool       { return &b }
func stringPtr(s string) *string { return &s }
func uintPtr(u uint) *uint       { return &u }

// MarkdownStyle is the dark glamour style with the listing palette.
func MarkdownStyle() ansi.StyleConfig {
	s := styles.DarkStyleConfig
	s.Document.Color = stringPtr(charmtone.Smoke.Hex())
	s.Heading.Color = stringPtr(charmtone.Malibu.Hex())
	s.Heading.Bold = boolPtr(true)
	s.H1 = ansi.StyleBlock{
		StylePrimitive: ansi.StylePrimitive{
			Prefix:          " ",
			Suffix:          " ",
			Color:           stringPtr(charmtone.Zest.Hex()),
			BackgroundColor: stringPtr(charmtone.Charple.Hex()),
			Bold:            boolPtr(true),
		},
	}
	s.Code.Color = stringPtr(charmtone.Malibu.Hex())
	s.CodeBlock.Margin = uintPtr(2)
	return s
}

// RenderMarkdown renders markdown for the terminal. Without colors,
// the notty style is used.
func RenderMarkdown(md string, width int, enabled bool) (string, error) {
	style := styles.NoTTYStyleConfig
	if enabled {
		style = MarkdownStyle()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
