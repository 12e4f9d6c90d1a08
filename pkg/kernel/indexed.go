package kernel

import (
	"fmt"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// Indexed is a shared-vertex triangle mesh in flat arrays, the layout
// renderers and most kernels use. Vertices and Normals hold 3 floats per
// vertex, Indices 3 per triangle.
type Indexed struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`
}

// VertexCount returns the number of vertices.
func (m *Indexed) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Indexed) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Indexed) IsEmpty() bool {
	return len(m.Vertices) == 0
}

func (m *Indexed) vertex(i uint32) mgl32.Vec3 {
	return mgl32.Vec3{m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]}
}

// Mesh expands the indexed triangles into STL triangles. Normals are
// recomputed from the winding.
func (m *Indexed) Mesh(opts mesh.Options) (*mesh.Mesh, error) {
	n := uint32(m.VertexCount())
	triangles := make([]mesh.Triangle, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		var tri mesh.Triangle
		for slot := 0; slot < 3; slot++ {
			idx := m.Indices[t*3+slot]
			if idx >= n {
				return nil, fmt.Errorf("kernel: triangle %d uses vertex %d of %d", t, idx, n)
			}
			tri.Vertices[slot] = m.vertex(idx)
		}
		triangles = append(triangles, tri)
	}
	opts.SkipNormals = false
	return mesh.New(m.Name, triangles, opts), nil
}

// FromMesh welds identical corners of m into shared vertices. Each vertex
// normal is the normalized sum of the unit normals of the facets using it.
func FromMesh(m *mesh.Mesh) *Indexed {
	out := &Indexed{Name: m.Name}
	index := make(map[mgl32.Vec3]uint32)
	var sums []mgl32.Vec3

	units := m.UnitNormals()
	for i, t := range m.Triangles() {
		for _, v := range t.Vertices {
			idx, ok := index[v]
			if !ok {
				idx = uint32(len(sums))
				index[v] = idx
				out.Vertices = append(out.Vertices, v[0], v[1], v[2])
				sums = append(sums, mgl32.Vec3{})
			}
			sums[idx] = sums[idx].Add(units[i])
			out.Indices = append(out.Indices, idx)
		}
	}

	out.Normals = make([]float32, 0, len(sums)*3)
	for _, n := range sums {
		if l := n.Len(); l > 0 {
			n = n.Mul(1 / l)
		}
		out.Normals = append(out.Normals, n[0], n[1], n[2])
	}
	return out
}
