package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// RotationMatrix builds the Euler-Rodrigues rotation matrix for theta
// radians about axis. The axis is normalized first; a zero axis yields the
// zero matrix, which the rotate methods treat as "nothing to do".
func RotationMatrix(axis mgl64.Vec3, theta float64) mgl64.Mat3 {
	if axis == (mgl64.Vec3{}) {
		return mgl64.Mat3{}
	}
	axis = axis.Mul(1 / math.Sqrt(axis.Dot(axis)))
	theta /= 2

	a := math.Cos(theta)
	s := -math.Sin(theta)
	b, c, d := axis[0]*s, axis[1]*s, axis[2]*s
	aa, bb, cc, dd := a*a, b*b, c*c, d*d
	bc, ad, ac, ab, bd, cd := b*c, a*d, a*c, a*b, b*d, c*d

	return mgl64.Mat3FromRows(
		mgl64.Vec3{aa + bb - cc - dd, 2 * (bc + ad), 2 * (bd - ac)},
		mgl64.Vec3{2 * (bc - ad), aa + cc - bb - dd, 2 * (cd + ab)},
		mgl64.Vec3{2 * (bd + ac), 2 * (cd - ab), aa + dd - bb - cc},
	)
}

// Rotate turns every vertex by theta radians about axis through the origin.
// Vertices are treated as row vectors and multiplied by RotationMatrix.
// Stored normals are rotated too; cached attributes are left untouched.
func (m *Mesh) Rotate(axis mgl64.Vec3, theta float64) {
	if theta == 0 {
		return
	}
	m.rotate(RotationMatrix(axis, theta), nil)
}

// RotateAbout is Rotate about an axis through point.
func (m *Mesh) RotateAbout(axis mgl64.Vec3, theta float64, point mgl64.Vec3) {
	if theta == 0 {
		return
	}
	m.rotate(RotationMatrix(axis, theta), &point)
}

// RotateUsingMatrix applies r to every vertex, as Rotate does.
func (m *Mesh) RotateUsingMatrix(r mgl64.Mat3) {
	m.rotate(r, nil)
}

// RotateUsingMatrixAbout applies r about point.
func (m *Mesh) RotateUsingMatrixAbout(r mgl64.Mat3, point mgl64.Vec3) {
	m.rotate(r, &point)
}

func (m *Mesh) rotate(r mgl64.Mat3, point *mgl64.Vec3) {
	if r == (mgl64.Mat3{}) {
		return
	}
	// v*r for a row vector v equals transpose(r)*v.
	rt := r.Transpose()
	apply := func(v mgl32.Vec3) mgl32.Vec3 {
		p := vec64(v)
		if point == nil {
			return vec32(rt.Mul3x1(p))
		}
		return vec32(rt.Mul3x1(p.Sub(*point)).Add(*point))
	}

	for i := range m.triangles {
		t := &m.triangles[i]
		t.Normal = vec32(rt.Mul3x1(vec64(t.Normal)))
		for slot := range t.Vertices {
			t.Vertices[slot] = apply(t.Vertices[slot])
		}
	}
}

// Translate moves every vertex by v.
func (m *Mesh) Translate(v mgl64.Vec3) {
	d := vec32(v)
	for i := range m.triangles {
		t := &m.triangles[i]
		for slot := range t.Vertices {
			t.Vertices[slot] = t.Vertices[slot].Add(d)
		}
	}
}

// Transform applies the affine matrix t to every vertex as a column vector:
// the upper-left 3x3 block is the linear part and the last column holds the
// translation. Normals, areas and centroids are recomputed afterwards and
// the remaining caches are dropped.
func (m *Mesh) Transform(t mgl64.Mat4) {
	linear := t.Mat3()
	offset := mgl64.Vec3{t.At(0, 3), t.At(1, 3), t.At(2, 3)}
	for i := range m.triangles {
		tri := &m.triangles[i]
		for slot := range tri.Vertices {
			tri.Vertices[slot] = vec32(linear.Mul3x1(vec64(tri.Vertices[slot])).Add(offset))
		}
	}
	m.Invalidate()
	m.UpdateNormals()
}

func vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}
