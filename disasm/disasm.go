// Package disasm turns binary programs back into assembly source.
package disasm

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"go.creack.net/stackvm/asm"
	"go.creack.net/stackvm/asm/parser"
	"go.creack.net/stackvm/assets"
	"go.creack.net/stackvm/op"
)

func md5sum(data []byte) string {
	h := md5.New()
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// knownSrcs indexes the embedded samples by the md5 of their code section.
var knownSrcs = sync.OnceValue(func() map[string]string {
	out := map[string]string{}
	_ = fs.WalkDir(assets.Samples, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, assets.SourceExt) {
			return err
		}
		src, err := fs.ReadFile(assets.Samples, path)
		if err != nil {
			return err
		}
		_, pr, err := asm.Compile(path, string(src))
		if err != nil {
			// Should not happen, samples are tested.
			return nil
		}
		out[md5sum(pr.Code())] = string(src)
		return nil
	})
	return out
})

// searchExistingSrc returns the sample source matching the given code, if any.
func searchExistingSrc(code []byte) (*parser.Program, bool) {
	src, ok := knownSrcs()[md5sum(code)]
	if !ok {
		return nil, false
	}
	_, pr, err := asm.Compile("known-srcs", src)
	if err != nil || !bytes.Equal(pr.Code(), code) {
		return nil, false
	}
	return pr, true
}

// Disassemble loads a binary file content and returns the matching program.
// When the code is one of the embedded samples, its original source is used.
func Disassemble(inputName string, binData []byte) (*parser.Program, error) {
	bin, err := op.Load(binData)
	if err != nil {
		return nil, fmt.Errorf("failed to load binary: %w", err)
	}
	if pr, ok := searchExistingSrc(bin.Code); ok {
		pr.Name = inputName
		return pr, nil
	}
	return Decode(inputName, bin.Code)
}

// LabelName is the synthesized label for the given address.
func LabelName(addr uint32) string {
	return fmt.Sprintf("L_%04x", addr)
}

type chunk struct {
	addr uint32
	ins  *op.Instruction // Nil for raw bytes.
	raw  []byte
}

// sweep splits the code in decodable instructions and runs of raw bytes.
func sweep(code []byte) []chunk {
	var out []chunk
	for addr := 0; addr < len(code); {
		ins, err := op.Decode(code, addr)
		if err != nil {
			// Merge consecutive undecodable bytes.
			if n := len(out); n > 0 && out[n-1].ins == nil {
				out[n-1].raw = append(out[n-1].raw, code[addr])
			} else {
				out = append(out, chunk{addr: uint32(addr), raw: []byte{code[addr]}})
			}
			addr++
			continue
		}
		out = append(out, chunk{addr: uint32(addr), ins: &ins})
		addr += ins.Size()
	}
	return out
}

// targets names every control transfer target landing on a chunk start,
// or the end of the code. Names come from the debug info when available.
func targets(chunks []chunk, codeSize int, debug *op.DebugInfo) map[uint32]string {
	starts := map[uint32]bool{uint32(codeSize): true}
	for _, c := range chunks {
		starts[c.addr] = true
	}
	labels := map[uint32]string{}
	for _, c := range chunks {
		if c.ins == nil || c.ins.OpCode.Operand != op.OperandAddress {
			continue
		}
		if target := c.ins.Address(); starts[target] {
			labels[target] = LabelName(target)
		}
	}
	for addr := range starts {
		if name, ok := debug.LabelAt(addr); ok {
			labels[addr] = name
		}
	}
	return labels
}

// Decode builds a program from a code section. Control transfer targets
// landing on a chunk start get a synthesized label, the others stay numeric.
// Re-encoding the program yields the same code.
func Decode(inputName string, code []byte) (*parser.Program, error) {
	chunks := sweep(code)
	labels := targets(chunks, len(code), nil)

	nodes := make([]parser.Node, 0, len(chunks)+len(labels))
	addLabel := func(addr uint32) {
		if name, ok := labels[addr]; ok {
			nodes = append(nodes, &parser.Label{Name: name})
		}
	}
	for _, c := range chunks {
		addLabel(c.addr)
		if c.ins == nil {
			nodes = append(nodes, &parser.Directive{
				Name:  strings.TrimPrefix(op.CodeCmdString, string(op.DirectiveChar)),
				Value: hexBytes(c.raw),
				Data:  c.raw,
			})
			continue
		}
		ins := &parser.Instruction{OpCode: c.ins.OpCode}
		switch c.ins.OpCode.Operand {
		case op.OperandImmediate:
			ins.Operand = &parser.Operand{Value: c.ins.Operand}
		case op.OperandAddress:
			ins.Operand = &parser.Operand{Label: labels[c.ins.Address()], Value: c.ins.Operand}
		}
		nodes = append(nodes, ins)
	}
	addLabel(uint32(len(code)))

	pr := parser.NewProgramFromNodes(inputName, nodes)
	buf, err := pr.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode program: %w", err)
	}
	if !bytes.Equal(buf, code) {
		// Should never happen.
		return nil, fmt.Errorf("disassembly of %q does not round trip", inputName)
	}
	return pr, nil
}

func hexBytes(data []byte) string {
	parts := make([]string, 0, len(data))
	for _, b := range data {
		parts = append(parts, hex.EncodeToString([]byte{b}))
	}
	return strings.Join(parts, " ")
}

// Source renders the program as assembly source.
func Source(pr *parser.Program) string {
	return pr.PrettyPrint()
}
