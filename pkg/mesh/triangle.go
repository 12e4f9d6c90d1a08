// Package mesh holds the in-memory triangle mesh used by the STL codec and
// the geometry routines that operate on it: normals, areas, unit normals,
// centroids, bounds, rotations, affine transforms, mass properties and
// structural filtering of degenerate or duplicated facets.
//
// A Mesh exclusively owns one contiguous slice of Triangle records. Derived
// attributes are computed on first access and cached; the cache is never
// invalidated implicitly, so callers that mutate vertices must call the
// matching Update method (or Invalidate) themselves.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// RecordSize is the encoded size of one triangle in a binary STL file:
// 12 bytes of normal, 36 bytes of vertices and a 2 byte attribute.
const RecordSize = 50

// Triangle is one facet: the facet normal, the three corners in winding
// order and the binary attribute byte count. The attribute is carried
// through unchanged and never interpreted.
type Triangle struct {
	Normal   mgl32.Vec3
	Vertices [3]mgl32.Vec3
	Attr     uint16
}

// Cross returns the unnormalized normal cross(v1-v0, v2-v0).
func (t Triangle) Cross() mgl32.Vec3 {
	return t.Vertices[1].Sub(t.Vertices[0]).Cross(t.Vertices[2].Sub(t.Vertices[0]))
}

// Area returns half the length of the cross product of two edges.
func (t Triangle) Area() float32 {
	return 0.5 * t.Cross().Len()
}

// Centroid returns the mean of the three vertices.
func (t Triangle) Centroid() mgl32.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2]).Mul(1.0 / 3.0)
}

// vertexSum is the duplicate grouping key: the component-wise sum of the
// three vertices. Distinct triangles with the same sum collide.
func (t Triangle) vertexSum() mgl32.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2])
}
