//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold booleans
// always produce closed meshes, which keeps mass properties exact.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
// and select it with "kernel": "manifold" in the settings file.
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/stlkit/pkg/kernel"
	"github.com/chazu/stlkit/pkg/mesh"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// handle unwraps a solid created by this kernel.
func handle(s kernel.Solid) *C.ManifoldManifold {
	ms, ok := s.(*manifoldSolid)
	if !ok {
		panic(fmt.Sprintf("manifold: foreign solid %T", s))
	}
	return ms.ptr
}

// Box creates an axis-aligned box with its minimum corner at the origin.
func (k *ManifoldKernel) Box(x, y, z float64) kernel.Solid {
	const centered = 0
	return newSolid(C.manifold_cube(C.manifold_alloc_manifold(),
		C.double(x), C.double(y), C.double(z), C.int(centered)))
}

// Cylinder creates an untapered cylinder along Z centered at the origin.
// segments <= 0 lets Manifold pick from its circular defaults.
func (k *ManifoldKernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	const centered = 1
	return newSolid(C.manifold_cylinder(C.manifold_alloc_manifold(),
		C.double(height), C.double(radius), C.double(radius),
		C.int(max(segments, 0)), C.int(centered)))
}

// Sphere creates a sphere centered at the origin.
func (k *ManifoldKernel) Sphere(radius float64, segments int) kernel.Solid {
	return newSolid(C.manifold_sphere(C.manifold_alloc_manifold(),
		C.double(radius), C.int(max(segments, 0))))
}

type booleanOp func(alloc, a, b *C.ManifoldManifold) *C.ManifoldManifold

func boolean(a, b kernel.Solid, op booleanOp) kernel.Solid {
	return newSolid(op(C.manifold_alloc_manifold(), handle(a), handle(b)))
}

func (k *ManifoldKernel) Union(a, b kernel.Solid) kernel.Solid {
	return boolean(a, b, func(m, a, b *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_union(m, a, b)
	})
}

// Difference returns a minus b.
func (k *ManifoldKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return boolean(a, b, func(m, a, b *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_difference(m, a, b)
	})
}

func (k *ManifoldKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return boolean(a, b, func(m, a, b *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_intersection(m, a, b)
	})
}

func (k *ManifoldKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_translate(C.manifold_alloc_manifold(), handle(s),
		C.double(x), C.double(y), C.double(z)))
}

// Rotate applies Euler angles in degrees, X then Y then Z.
func (k *ManifoldKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return newSolid(C.manifold_rotate(C.manifold_alloc_manifold(), handle(s),
		C.double(x), C.double(y), C.double(z)))
}

// ToMesh extracts the solid's MeshGL. Vertex properties are interleaved
// with the position first; only the position is kept since facet normals
// are recomputed from the winding.
func (k *ManifoldKernel) ToMesh(s kernel.Solid, name string) (*mesh.Mesh, error) {
	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), handle(s))
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return nil, fmt.Errorf("manifold: %q has no geometry", name)
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	ix := &kernel.Indexed{
		Name:     name,
		Vertices: make([]float32, numVert*3),
		Indices:  indices,
	}
	for i := 0; i < numVert; i++ {
		copy(ix.Vertices[i*3:i*3+3], propData[i*numProp:i*numProp+3])
	}
	return ix.Mesh(mesh.Options{})
}
