package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"go.creack.net/stackvm/asm"
	"go.creack.net/stackvm/asm/parser"
	"go.creack.net/stackvm/assets"
	"go.creack.net/stackvm/disasm"
	"go.creack.net/stackvm/op"
)

// BinaryExt is the extension of assembled files.
const BinaryExt = ".bin"

// Program is a loaded input file.
type Program struct {
	PathName  string
	ShortName string
	Source    string // Empty for binaries unless disassembled from a known sample.
	Binary    *op.Binary

	// Prog carries the listing and the debug info. Compiled from source,
	// or recovered by disassembly for binaries.
	Prog *parser.Program
}

// Load reads an assembly source or a binary file.
// Sources are assembled in memory.
func Load(pathName string) (*Program, error) {
	p := &Program{
		PathName:  pathName,
		ShortName: strings.TrimSuffix(filepath.Base(pathName), filepath.Ext(pathName)),
	}

	data, err := os.ReadFile(pathName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", pathName)
	}

	if !isBinary(pathName, data) {
		buf, pr, err := asm.Compile(pathName, string(data))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		p.Source = string(data)
		p.Prog = pr
		data = buf
	}
	if p.Binary, err = op.Load(data); err != nil {
		return nil, errors.Wrapf(err, "failed to load binary %q", pathName)
	}

	if p.Prog == nil {
		prog, err := disasm.Disassemble(p.ShortName, data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to disassemble %q", pathName)
		}
		p.Prog = prog
		p.Source = disasm.Source(prog)
	}
	return p, nil
}

// isBinary goes by the extension, then by the magic for unknown ones.
func isBinary(pathName string, data []byte) bool {
	switch filepath.Ext(pathName) {
	case assets.SourceExt:
		return false
	case BinaryExt:
		return true
	}
	return strings.HasPrefix(string(data), op.Magic)
}

// OutputName is the default assembler output for the given source.
func OutputName(pathName string) string {
	return strings.TrimSuffix(pathName, filepath.Ext(pathName)) + BinaryExt
}
