package op

import (
	"errors"
	"fmt"
)

// Header.
const (
	Magic      = ".SPVM"
	Version    = 1
	HeaderSize = len(Magic) + 1 + 4 + 4 // Magic, version, instruction count, code size.
)

// Load errors.
var (
	ErrBadMagic           = errors.New("wrong file format")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTruncatedBinary    = errors.New("truncated binary")
	ErrCodeSize           = errors.New("code size mismatch")
)

// Header is the fixed size prefix of a binary, little-endian on disk.
type Header struct {
	Magic           [len(Magic)]byte
	Version         uint8
	NumInstructions uint32
	CodeSize        uint32
}

// Binary is an assembled program: header and code section.
type Binary struct {
	Header Header
	Code   []byte
}

// NewBinary wraps the given code section with its header.
func NewBinary(code []byte, numInstructions int) *Binary {
	b := &Binary{
		Header: Header{
			Version:         Version,
			NumInstructions: uint32(numInstructions),
			CodeSize:        uint32(len(code)),
		},
		Code: code,
	}
	copy(b.Header.Magic[:], Magic)
	return b
}

// Bytes returns the binary file content.
func (b *Binary) Bytes() []byte {
	buf := make([]byte, HeaderSize, HeaderSize+len(b.Code))

	idx := copy(buf, b.Header.Magic[:])
	buf[idx] = b.Header.Version
	idx++
	Endian.PutUint32(buf[idx:], b.Header.NumInstructions)
	idx += 4
	Endian.PutUint32(buf[idx:], b.Header.CodeSize)

	return append(buf, b.Code...)
}

// Load decodes a binary file content. The code section is not validated
// beyond its size, invalid instructions are the engine's concern.
func Load(data []byte) (*Binary, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header needs %d bytes, got %d: %w", HeaderSize, len(data), ErrTruncatedBinary)
	}

	var b Binary
	idx := copy(b.Header.Magic[:], data)
	if string(b.Header.Magic[:]) != Magic {
		return nil, fmt.Errorf("magic %q: %w", b.Header.Magic[:], ErrBadMagic)
	}
	b.Header.Version = data[idx]
	idx++
	if b.Header.Version != Version {
		return nil, fmt.Errorf("version %d: %w", b.Header.Version, ErrUnsupportedVersion)
	}
	b.Header.NumInstructions = Endian.Uint32(data[idx:])
	idx += 4
	b.Header.CodeSize = Endian.Uint32(data[idx:])
	idx += 4

	code := data[idx:]
	if uint64(len(code)) != uint64(b.Header.CodeSize) {
		return nil, fmt.Errorf("header says %d bytes, got %d: %w", b.Header.CodeSize, len(code), ErrCodeSize)
	}
	b.Code = code
	return &b, nil
}
