package mesh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func tri(v0, v1, v2 mgl32.Vec3) Triangle {
	return Triangle{Vertices: [3]mgl32.Vec3{v0, v1, v2}}
}

// unitCube returns the 12 outward-facing triangles of the cube [0,1]^3.
func unitCube() []Triangle {
	quads := [][4]mgl32.Vec3{
		{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}}, // z=0
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}}, // z=1
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}}, // y=0
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}}, // y=1
		{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}}, // x=0
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}}, // x=1
	}
	var out []Triangle
	for _, q := range quads {
		out = append(out, tri(q[0], q[1], q[2]), tri(q[0], q[2], q[3]))
	}
	return out
}

func vecNear(a, b mgl32.Vec3, tol float64) bool {
	for i := range a {
		if math.Abs(float64(a[i])-float64(b[i])) > tol {
			return false
		}
	}
	return true
}

func assertVertices(t *testing.T, m *Mesh, want [][3]mgl32.Vec3, tol float64) {
	t.Helper()
	if m.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", m.Len(), len(want))
	}
	for i := range want {
		for slot := 0; slot < 3; slot++ {
			if got := m.Vertex(i, slot); !vecNear(got, want[i][slot], tol) {
				t.Errorf("Vertex(%d, %d) = %v, want %v", i, slot, got, want[i][slot])
			}
		}
	}
}
