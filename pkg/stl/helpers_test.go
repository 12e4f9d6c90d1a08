package stl

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

const oneFacet = `solid test.stl
facet normal -0.014565 0.073223 -0.002897
  outer loop
    vertex 0.399344 0.461940 1.044090
    vertex 0.500000 0.500000 1.500000
    vertex 0.576120 0.500000 1.117320
  endloop
endfacet
endsolid test.stl
`

// pipe hides Seek so the decoder has to use its pushback buffer.
type pipe struct {
	io.Reader
}

func tri(v0, v1, v2 mgl32.Vec3) mesh.Triangle {
	return mesh.Triangle{Vertices: [3]mgl32.Vec3{v0, v1, v2}}
}

func cubeTriangles() []mesh.Triangle {
	quads := [][4]mgl32.Vec3{
		{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}, {1, 0, 0}},
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}, {1, 1, 0}},
		{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}, {1, 0, 1}},
	}
	var out []mesh.Triangle
	for _, q := range quads {
		out = append(out, tri(q[0], q[1], q[2]), tri(q[0], q[2], q[3]))
	}
	return out
}

func cube(name string) *mesh.Mesh {
	return mesh.New(name, cubeTriangles(), mesh.Options{})
}

func decodeOne(t *testing.T, r io.Reader, mode Mode) *Solid {
	t.Helper()
	solid, err := NewDecoder(r, mode).Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return solid
}

func repeat(s string, n int) *bytes.Reader {
	return bytes.NewReader([]byte(strings.Repeat(s, n)))
}

// paddedHeader returns text padded with spaces to a full binary header.
func paddedHeader(text string) []byte {
	h := bytes.Repeat([]byte{' '}, HeaderSize)
	copy(h, text)
	return h
}

func countBytes(n uint32) []byte {
	return []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
}
