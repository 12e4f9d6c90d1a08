// Package threemf converts between 3MF packages and meshes. Every object
// resource that carries a mesh becomes one mesh; components and build
// transforms are not applied.
package threemf

import (
	"errors"
	"fmt"
	"io"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hpinc/go3mf"
)

// ErrIndex reports a triangle that refers to a vertex the object does not
// define.
var ErrIndex = errors.New("threemf: vertex index out of range")

// ReadFile decodes the 3MF package at path.
func ReadFile(path string, opts mesh.Options) ([]*mesh.Mesh, error) {
	r, err := go3mf.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("threemf: open %s: %w", path, err)
	}
	defer r.Close()

	var model go3mf.Model
	if err := r.Decode(&model); err != nil {
		return nil, fmt.Errorf("threemf: decode %s: %w", path, err)
	}
	return Meshes(&model, opts)
}

// Decode decodes a 3MF package held by r.
func Decode(r io.ReaderAt, size int64, opts mesh.Options) ([]*mesh.Mesh, error) {
	var model go3mf.Model
	if err := go3mf.NewDecoder(r, size).Decode(&model); err != nil {
		return nil, fmt.Errorf("threemf: decode: %w", err)
	}
	return Meshes(&model, opts)
}

// Meshes extracts the meshes of a decoded model in resource order.
func Meshes(model *go3mf.Model, opts mesh.Options) ([]*mesh.Mesh, error) {
	var meshes []*mesh.Mesh
	for _, obj := range model.Resources.Objects {
		if obj.Mesh == nil {
			continue
		}
		name := obj.Name
		if name == "" {
			name = fmt.Sprintf("object %d", obj.ID)
		}
		triangles, err := triangles(obj.Mesh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		meshes = append(meshes, mesh.New(name, triangles, opts))
	}
	return meshes, nil
}

func triangles(m *go3mf.Mesh) ([]mesh.Triangle, error) {
	vertices := m.Vertices.Vertex
	out := make([]mesh.Triangle, 0, len(m.Triangles.Triangle))
	for i, t := range m.Triangles.Triangle {
		var tri mesh.Triangle
		for slot, idx := range [3]uint32{t.V1, t.V2, t.V3} {
			if int(idx) >= len(vertices) {
				return nil, fmt.Errorf("%w: triangle %d uses vertex %d of %d",
					ErrIndex, i, idx, len(vertices))
			}
			tri.Vertices[slot] = mgl32.Vec3(vertices[idx])
		}
		out = append(out, tri)
	}
	return out, nil
}

// Encode writes meshes as one 3MF package with an object and a build item
// per mesh. Shared corners are written once per object.
func Encode(w io.Writer, meshes []*mesh.Mesh) error {
	var model go3mf.Model
	for i, m := range meshes {
		id := uint32(i + 1)
		model.Resources.Objects = append(model.Resources.Objects, &go3mf.Object{
			ID:   id,
			Name: m.Name,
			Mesh: encodeMesh(m),
		})
		model.Build.Items = append(model.Build.Items, &go3mf.Item{ObjectID: id})
	}
	if err := go3mf.NewEncoder(w).Encode(&model); err != nil {
		return fmt.Errorf("threemf: encode: %w", err)
	}
	return nil
}

func encodeMesh(m *mesh.Mesh) *go3mf.Mesh {
	out := new(go3mf.Mesh)
	index := make(map[mgl32.Vec3]uint32)
	vertex := func(v mgl32.Vec3) uint32 {
		if idx, ok := index[v]; ok {
			return idx
		}
		idx := uint32(len(out.Vertices.Vertex))
		out.Vertices.Vertex = append(out.Vertices.Vertex, go3mf.Point3D(v))
		index[v] = idx
		return idx
	}
	for _, t := range m.Triangles() {
		out.Triangles.Triangle = append(out.Triangles.Triangle, go3mf.Triangle{
			V1: vertex(t.Vertices[0]),
			V2: vertex(t.Vertices[1]),
			V3: vertex(t.Vertices[2]),
		})
	}
	return out
}
