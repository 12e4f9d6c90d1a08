package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ComputeNormals overwrites the normal of every triangle with the
// unnormalized cross product cross(v1-v0, v2-v0).
func ComputeNormals(triangles []Triangle) {
	for i := range triangles {
		triangles[i].Normal = triangles[i].Cross()
	}
}

// ComputeAreas returns half the length of every stored normal. Normals must
// already hold cross products for the result to be the facet area.
func ComputeAreas(triangles []Triangle) []float32 {
	areas := make([]float32, len(triangles))
	for i := range triangles {
		areas[i] = 0.5 * triangles[i].Normal.Len()
	}
	return areas
}

// ComputeUnits scales each stored normal by 1/(2*area). Triangles without a
// positive area get a zero vector, and one diagnostic is logged for them.
func ComputeUnits(triangles []Triangle, areas []float32) []mgl32.Vec3 {
	units := make([]mgl32.Vec3, len(triangles))
	zero := 0
	for i := range triangles {
		var area float32
		if i < len(areas) {
			area = areas[i]
		}
		if area > 0 {
			units[i] = triangles[i].Normal.Mul(1 / (2 * area))
		} else {
			zero++
		}
	}
	if zero > 0 {
		logger.Printf("zero sized areas found, %d of %d unit normals set to zero", zero, len(triangles))
	}
	return units
}

// ComputeCentroids returns the centroid of every triangle.
func ComputeCentroids(triangles []Triangle) []mgl32.Vec3 {
	centroids := make([]mgl32.Vec3, len(triangles))
	for i := range triangles {
		centroids[i] = triangles[i].Centroid()
	}
	return centroids
}

// UnitNormals returns the stored normals normalized to length one, leaving
// zero-length normals at zero.
func UnitNormals(triangles []Triangle) []mgl32.Vec3 {
	units := make([]mgl32.Vec3, len(triangles))
	for i := range triangles {
		if l := triangles[i].Normal.Len(); l > 0 {
			units[i] = triangles[i].Normal.Mul(1 / l)
		}
	}
	return units
}

// BoundingBox returns the component-wise minimum and maximum over every
// vertex. An empty slice yields two zero vectors.
func BoundingBox(triangles []Triangle) (min, max mgl32.Vec3) {
	if len(triangles) == 0 {
		return min, max
	}
	min = mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max = mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := range triangles {
		for _, v := range triangles[i].Vertices {
			for axis := 0; axis < 3; axis++ {
				if v[axis] < min[axis] {
					min[axis] = v[axis]
				}
				if v[axis] > max[axis] {
					max[axis] = v[axis]
				}
			}
		}
	}
	return min, max
}
