// Package assets embeds the sample programs.
package assets

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// SourceExt is the assembly source file extension.
const SourceExt = ".stasm"

// Samples are small programs showing the instruction set.
//
//go:embed samples/*.stasm
var Samples embed.FS

// Names returns the sorted sample names, without extension.
func Names() []string {
	entries, _ := fs.ReadDir(Samples, "samples") // Embedded, can't fail.
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), SourceExt))
	}
	slices.Sort(out)
	return out
}

// Source returns the source of the named sample.
func Source(name string) (string, error) {
	buf, err := Samples.ReadFile(path.Join("samples", strings.TrimSuffix(name, SourceExt)+SourceExt))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
