// Package kernel defines the solid modelling interface used to generate
// meshes from primitives and boolean operations. Backends (sdfx, manifold)
// implement it and hand their output back as STL-ready meshes.
package kernel

import "github.com/chazu/stlkit/pkg/mesh"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the solid modelling interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Sphere(radius float64, segments int) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates s into a named mesh. Normals follow the
	// cross-product rule of the vertex winding.
	ToMesh(s Solid, name string) (*mesh.Mesh, error)
}
