// Package asm assembles stack machine source into binary programs.
package asm

import (
	"go.creack.net/stackvm/asm/parser"
	"go.creack.net/stackvm/op"
)

// DefaultName is used in error locations when the input has no name.
const DefaultName = "<input>"

// Compile assembles the input and returns the binary file content along
// with the encoded program, which carries the debug info.
// Errors are *parser.Error values; no output is produced on failure.
func Compile(inputName, inputData string) ([]byte, *parser.Program, error) {
	bin, pr, err := compile(inputName, inputData)
	if err != nil {
		return nil, nil, err
	}
	return bin.Bytes(), pr, nil
}

// Assemble is Compile without the program metadata.
func Assemble(inputData string) (*op.Binary, error) {
	bin, _, err := compile(DefaultName, inputData)
	return bin, err
}

func compile(inputName, inputData string) (*op.Binary, *parser.Program, error) {
	// Parse the input.
	p := parser.NewParser(inputName, inputData)
	if err := p.Parse(); err != nil {
		return nil, nil, err
	}

	// Encode the program.
	pr := parser.NewProgram(p)
	if _, err := pr.Encode(); err != nil {
		return nil, nil, err
	}
	return pr.Binary(), pr, nil
}
