package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/stlkit/pkg/archive"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/chazu/stlkit/pkg/threemf"
	"github.com/samber/lo"
)

// stdio is the path meaning stdin or stdout.
const stdio = "-"

func openIn(path string) (io.ReadCloser, error) {
	if path == stdio {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// openOut returns stdout for "-". Stdout keeps its file descriptor so
// automatic mode can still detect a terminal.
func openOut(path string) (io.WriteCloser, error) {
	if path == stdio {
		return os.Stdout, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// readInput decodes every mesh in path: all solids of an STL file, every
// object of a 3MF package, or every STL member of an archive.
func readInput(path string, mode stl.Mode, opts mesh.Options) ([]*mesh.Mesh, error) {
	switch {
	case path != stdio && strings.EqualFold(filepath.Ext(path), ".3mf"):
		return threemf.ReadFile(path, opts)
	case path != stdio && archive.IsArchive(path):
		entries, err := archive.ReadMeshes(path, mode, opts)
		if err != nil {
			return nil, err
		}
		return lo.Map(entries, func(e archive.Entry, _ int) *mesh.Mesh { return e.Mesh }), nil
	}

	r, err := openIn(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	meshes, err := stl.ReadAll(r, mode, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, stl.ErrEmpty)
	}
	return meshes, nil
}

// fallbackName names an unnamed solid after the input file, then the
// output file, then a random number.
func fallbackName(in, out string) string {
	switch {
	case in != stdio:
		return filepath.Base(in)
	case out != stdio:
		return filepath.Base(out)
	}
	return fmt.Sprintf("stlkit-%06d", rand.IntN(1000000))
}
