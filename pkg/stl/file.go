package stl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chazu/stlkit/pkg/mesh"
)

// Read decodes the first solid in r.
func Read(r io.Reader, mode Mode, opts mesh.Options) (*mesh.Mesh, error) {
	solid, err := NewDecoder(r, mode).Decode()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	return solid.Mesh(opts), nil
}

// ReadAll decodes every solid in r, one mesh each.
func ReadAll(r io.Reader, mode Mode, opts mesh.Options) ([]*mesh.Mesh, error) {
	solids, err := NewDecoder(r, mode).ReadAll()
	if err != nil {
		return nil, err
	}
	meshes := make([]*mesh.Mesh, len(solids))
	for i, s := range solids {
		meshes[i] = s.Mesh(opts)
	}
	return meshes, nil
}

// ReadFile decodes the first solid of the file at path.
func ReadFile(path string, mode Mode, opts mesh.Options) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	defer f.Close()

	m, err := Read(f, mode, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadMultiFile decodes every solid of the file at path.
func ReadMultiFile(path string, mode Mode, opts mesh.Options) ([]*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	defer f.Close()

	meshes, err := ReadAll(f, mode, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meshes, nil
}

// ReadFiles reads the first solid of every path and concatenates them in
// order into one mesh named after the first file's solid.
func ReadFiles(paths []string, mode Mode, opts mesh.Options) (*mesh.Mesh, error) {
	if len(paths) == 0 {
		return nil, ErrEmpty
	}
	meshes := make([]*mesh.Mesh, 0, len(paths))
	for _, path := range paths {
		m, err := ReadFile(path, mode, mesh.Options{SkipNormals: true})
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}
	merged := mesh.Concat(meshes[0].Name, meshes...)
	return mesh.New(merged.Name, merged.Triangles(), opts), nil
}

// WriteFile writes m to path, creating or truncating it. An empty
// opts.Name falls back to the mesh name, then to the file's base name.
func WriteFile(path string, m *mesh.Mesh, opts SaveOptions) (err error) {
	if !opts.Mode.valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(opts.Mode))
	}
	if opts.Name == "" && m.Name == "" {
		opts.Name = filepath.Base(path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stl: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return Write(f, m, opts)
}
