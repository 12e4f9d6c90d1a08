package stl

import (
	"fmt"
	"io"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/transform"
)

// SaveOptions controls Write and WriteFile.
type SaveOptions struct {
	Mode Mode
	// Name is written into the solid line or binary header. Empty means
	// the mesh name.
	Name string
	// KeepNormals skips recomputing normals before writing.
	KeepNormals bool
	// Codec writes ASCII output. Nil means PortableCodec.
	Codec ASCIICodec
}

// textModer is implemented by destinations that re-encode what they are
// given.
type textModer interface {
	TextMode() bool
}

func isTextMode(w io.Writer) bool {
	switch t := w.(type) {
	case *transform.Writer:
		return true
	case textModer:
		return t.TextMode()
	}
	return false
}

type fder interface {
	Fd() uintptr
}

// resolveMode picks ASCII for terminals and Binary otherwise.
func resolveMode(w io.Writer, mode Mode) Mode {
	if mode != Automatic {
		return mode
	}
	if f, ok := w.(fder); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return ASCII
		}
	}
	return Binary
}

// Write serializes m to w. Unless opts.KeepNormals is set the mesh normals
// are recomputed first, which mutates m.
func Write(w io.Writer, m *mesh.Mesh, opts SaveOptions) error {
	if !opts.Mode.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(opts.Mode))
	}
	if isTextMode(w) {
		return ErrTextMode
	}
	if !opts.KeepNormals {
		m.UpdateNormals()
	}
	name := opts.Name
	if name == "" {
		name = m.Name
	}

	switch resolveMode(w, opts.Mode) {
	case ASCII:
		codec := opts.Codec
		if codec == nil {
			codec = PortableCodec{}
		}
		return codec.WriteSolid(w, name, m.Triangles())
	default:
		return writeBinary(w, name, m.Triangles())
	}
}
