// Package colorize highlights stack machine assembly for terminals.
package colorize

import (
	"cmp"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/term"

	"go.creack.net/stackvm/op"
)

// EnvNoColor disables colors when set.
const EnvNoColor = "STACKVM_NO_COLOR"

// mnemonicPattern matches every mnemonic and alias, longest first
// so OUTPUT-TOP wins over OUTPUT.
func mnemonicPattern() string {
	var names []string
	for _, oc := range op.OpCodeTable {
		names = append(names, oc.Name)
		names = append(names, oc.Aliases...)
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	for i, n := range names {
		names[i] = regexp.QuoteMeta(n)
	}
	return `(?i)(?:` + strings.Join(names, "|") + `)(?![\w-])`
}

// Lexer tokenizes .stasm sources.
var Lexer = lexers.Register(chroma.MustNewLexer(
	&chroma.Config{
		Name:      "stasm",
		Aliases:   []string{"stasm", "stackvm"},
		Filenames: []string{"*.stasm"},
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `[;#][^\n]*`, Type: chroma.CommentSingle},
				{Pattern: `"[^"\n]*"`, Type: chroma.LiteralString},
				{Pattern: `\.[A-Za-z_][\w-]*`, Type: chroma.KeywordPseudo},
				{Pattern: `([A-Za-z_][\w-]*)(:)`, Type: chroma.ByGroups(chroma.NameLabel, chroma.Punctuation)},
				{Pattern: mnemonicPattern(), Type: chroma.Keyword},
				{Pattern: `[-+]?0[xX][0-9a-fA-F_]+`, Type: chroma.LiteralNumberHex},
				{Pattern: `[-+]?0[bB][01_]+`, Type: chroma.LiteralNumberBin},
				{Pattern: `[-+]?0[oO][0-7_]+`, Type: chroma.LiteralNumberOct},
				{Pattern: `[-+]?[0-9][0-9_]*`, Type: chroma.LiteralNumberInteger},
				{Pattern: `[A-Za-z_][\w-]*`, Type: chroma.NameVariable},
				{Pattern: `\s+`, Type: chroma.TextWhitespace},
				{Pattern: `.`, Type: chroma.Error},
			},
		}
	},
))

// getStyle returns the highlighting style with fallbacks.
func getStyle() *chroma.Style {
	candidates := []string{StyleName, "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter.
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal256", "terminal16m"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Enabled reports whether output to w should be colored:
// w is a terminal and colors are not disabled from the environment.
func Enabled(w io.Writer) bool {
	if os.Getenv(EnvNoColor) != "" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(f.Fd())
}

// Highlight applies syntax highlighting to assembly source.
// On error, the source is returned as is.
func Highlight(code string) (string, error) {
	iterator, err := Lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getStyle(), iterator); err != nil {
		return code, err
	}
	return buf.String(), nil
}

// Tokens returns the token types of the source, whitespace excluded.
func Tokens(code string) ([]chroma.Token, error) {
	iterator, err := Lexer.Tokenise(nil, code)
	if err != nil {
		return nil, err
	}
	var out []chroma.Token
	for _, tok := range iterator.Tokens() {
		if tok.Type == chroma.TextWhitespace {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}
