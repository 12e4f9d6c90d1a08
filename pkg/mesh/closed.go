package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// float32Epsilon is the gap between 1 and the next float32.
const float32Epsilon = 1.1920929e-07

type edge [2]mgl32.Vec3

// IsClosed reports whether the mesh encloses a volume.
//
// The default test sums the stored normals per axis and accepts the mesh
// when every sum is within float32 rounding of zero. The exact test
// requires every directed edge to appear once and to be matched by its
// reverse, taking the stored normals into account for facets whose winding
// disagrees with them.
func (m *Mesh) IsClosed(exact bool) bool {
	if exact {
		return closedExact(m.triangles)
	}
	var sum, limit [3]float64
	for i := range m.triangles {
		for axis, c := range m.triangles[i].Normal {
			sum[axis] += float64(c)
			limit[axis] += math.Abs(float64(c))
		}
	}
	for axis := range sum {
		if math.Abs(sum[axis]) > limit[axis]*float32Epsilon {
			return false
		}
	}
	return true
}

// Check is IsClosed with a diagnostic logged for open meshes.
func (m *Mesh) Check(exact bool) bool {
	if m.IsClosed(exact) {
		return true
	}
	logger.Printf("mesh %q is not closed, mass properties will be inaccurate", m.Name)
	return false
}

func closedExact(triangles []Triangle) bool {
	directed := make(map[edge]struct{}, 3*len(triangles))
	for i := range triangles {
		t := &triangles[i]
		reversed := t.Cross().Dot(t.Normal) < 0
		for slot := 0; slot < 3; slot++ {
			e := edge{t.Vertices[slot], t.Vertices[(slot+1)%3]}
			if reversed {
				e[0], e[1] = e[1], e[0]
			}
			if _, dup := directed[e]; dup {
				return false
			}
			directed[e] = struct{}{}
		}
	}
	for e := range directed {
		if _, ok := directed[edge{e[1], e[0]}]; !ok {
			return false
		}
	}
	return true
}
