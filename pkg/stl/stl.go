// Package stl reads and writes STL files in both the ASCII and the binary
// variant.
//
// Loading sniffs the 80 byte header: a header starting with "solid" is
// parsed as ASCII, anything else as binary. Because binary files are allowed
// to start with "solid" too, a failed ASCII parse in Automatic mode falls
// back to the binary reader. While the ASCII reader has not looked past the
// header the fallback reuses the header bytes; once it has, the stream is
// repositioned and the binary layout is validated against the stream size.
package stl

import (
	"fmt"
	"strings"

	"github.com/chazu/stlkit/pkg/mesh"
)

const (
	// HeaderSize is the size of the binary header, and of the region
	// sniffed to detect the format.
	HeaderSize = 80
	// CountSize is the size of the binary triangle count field.
	CountSize = 4
	// BufferSize is the chunk size used by the ASCII reader.
	BufferSize = 4096
	// MaxCount is the largest binary triangle count accepted (exclusive).
	MaxCount = 100_000_000
)

// ProductName and Version are written into binary headers.
const (
	ProductName = "stlkit"
	Version     = "0.3.1"
)

// Mode selects the STL variant.
type Mode int

const (
	// Automatic sniffs the input when loading. When saving it writes
	// ASCII to terminals and binary everywhere else.
	Automatic Mode = iota
	ASCII
	Binary
)

func (m Mode) valid() bool {
	return m >= Automatic && m <= Binary
}

func (m Mode) String() string {
	switch m {
	case Automatic:
		return "automatic"
	case ASCII:
		return "ascii"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps "auto", "automatic", "ascii" or "binary" (any case) to a
// Mode. An empty string is Automatic.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "automatic":
		return Automatic, nil
	case "ascii":
		return ASCII, nil
	case "binary", "bin":
		return Binary, nil
	}
	return Automatic, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Solid is one decoded solid: its name and raw triangles. For binary input
// the name is the right-trimmed header.
type Solid struct {
	Name      string
	Triangles []mesh.Triangle
}

// Mesh wraps the solid's triangles in a mesh built with opts.
func (s *Solid) Mesh(opts mesh.Options) *mesh.Mesh {
	return mesh.New(s.Name, s.Triangles, opts)
}
