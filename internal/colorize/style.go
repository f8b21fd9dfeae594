package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/exp/charmtone"
)

// StyleName is the registered chroma style.
const StyleName = "stackvm-dark"

// Dark is the chroma style for listings.
var Dark = styles.Register(chroma.MustNewStyle(StyleName, chroma.StyleEntries{
	chroma.Text:       charmtone.Smoke.Hex(),
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "italic " + charmtone.Squid.Hex(),
	chroma.Error:      charmtone.Cherry.Hex(),

	chroma.Keyword:       "bold " + charmtone.Malibu.Hex(), // Mnemonics.
	chroma.KeywordPseudo: charmtone.Cheeky.Hex(),           // Directives.

	chroma.NameLabel:    "bold " + charmtone.Zest.Hex(),
	chroma.NameVariable: charmtone.Guac.Hex(), // Label references.

	chroma.LiteralNumber: charmtone.Coral.Hex(),
	chroma.LiteralString: charmtone.Citron.Hex(),
	chroma.Punctuation:   charmtone.Smoke.Hex(),
}))

// Listing styles.
var (
	AddrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	PCStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(charmtone.Zest.Hex())) // Control transfers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	MutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(charmtone.Squid.Hex()))
)

// Render applies the style when colors are enabled.
func Render(enabled bool, s lipgloss.Style, text string) string {
	if !enabled {
		return text
	}
	return s.Render(text)
}
