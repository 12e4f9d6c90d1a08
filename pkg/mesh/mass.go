package mesh

import "github.com/go-gl/mathgl/mgl64"

// MassProperties holds the result of integrating a closed mesh as a solid
// of uniform density.
type MassProperties struct {
	Volume float64
	Mass   float64
	// CenterOfGravity is expressed in mesh coordinates.
	CenterOfGravity mgl64.Vec3
	// Inertia is the symmetric inertia tensor about CenterOfGravity.
	Inertia mgl64.Mat3
}

// MassProperties returns the volume, center of gravity and inertia tensor
// at unit density. An open mesh is logged but still integrated.
func (m *Mesh) MassProperties() (volume float64, cog mgl64.Vec3, inertia mgl64.Mat3) {
	m.Check(false)
	p := ComputeMassProperties(m.triangles, 1)
	return p.Volume, p.CenterOfGravity, p.Inertia
}

// MassPropertiesWithDensity is MassProperties for the given density, also
// returning the mass.
func (m *Mesh) MassPropertiesWithDensity(density float64) (volume, mass float64, cog mgl64.Vec3, inertia mgl64.Mat3) {
	m.Check(false)
	p := ComputeMassProperties(m.triangles, density)
	return p.Volume, p.Mass, p.CenterOfGravity, p.Inertia
}

// ComputeMassProperties integrates the signed tetrahedra spanned by every
// triangle (Eberly, "Polyhedral Mass Properties"). Coordinates are taken
// relative to the first vertex of the first triangle to limit cancellation.
// A mesh enclosing no volume reports a zero center and tensor.
func ComputeMassProperties(triangles []Triangle, density float64) MassProperties {
	if len(triangles) == 0 {
		return MassProperties{}
	}
	ref := vec64(triangles[0].Vertices[0])

	var intg [10]float64
	for i := range triangles {
		t := &triangles[i]
		p0 := vec64(t.Vertices[0]).Sub(ref)
		p1 := vec64(t.Vertices[1]).Sub(ref)
		p2 := vec64(t.Vertices[2]).Sub(ref)
		x0, y0, z0 := p0[0], p0[1], p0[2]
		x1, y1, z1 := p1[0], p1[1], p1[2]
		x2, y2, z2 := p2[0], p2[1], p2[2]

		a1, b1, c1 := x1-x0, y1-y0, z1-z0
		a2, b2, c2 := x2-x0, y2-y0, z2-z0
		d0 := b1*c2 - b2*c1
		d1 := a2*c1 - a1*c2
		d2 := a1*b2 - a2*b1

		f1x, f2x, f3x, g0x, g1x, g2x := subexpressions(x0, x1, x2)
		_, f2y, f3y, g0y, g1y, g2y := subexpressions(y0, y1, y2)
		_, f2z, f3z, g0z, g1z, g2z := subexpressions(z0, z1, z2)

		intg[0] += d0 * f1x
		intg[1] += d0 * f2x
		intg[2] += d1 * f2y
		intg[3] += d2 * f2z
		intg[4] += d0 * f3x
		intg[5] += d1 * f3y
		intg[6] += d2 * f3z
		intg[7] += d0 * (y0*g0x + y1*g1x + y2*g2x)
		intg[8] += d1 * (z0*g0y + z1*g1y + z2*g2y)
		intg[9] += d2 * (x0*g0z + x1*g1z + x2*g2z)
	}
	for i, div := range [10]float64{6, 24, 24, 24, 60, 60, 60, 120, 120, 120} {
		intg[i] /= div
	}

	volume := intg[0]
	if volume == 0 {
		return MassProperties{}
	}
	mass := density * volume
	cog := mgl64.Vec3{intg[1] / volume, intg[2] / volume, intg[3] / volume}
	cx2, cy2, cz2 := cog[0]*cog[0], cog[1]*cog[1], cog[2]*cog[2]

	xx := (intg[5]+intg[6])*density - mass*(cy2+cz2)
	yy := (intg[4]+intg[6])*density - mass*(cz2+cx2)
	zz := (intg[4]+intg[5])*density - mass*(cx2+cy2)
	xy := -(intg[7]*density - mass*cog[0]*cog[1])
	yz := -(intg[8]*density - mass*cog[1]*cog[2])
	xz := -(intg[9]*density - mass*cog[2]*cog[0])

	return MassProperties{
		Volume:          volume,
		Mass:            mass,
		CenterOfGravity: cog.Add(ref),
		Inertia: mgl64.Mat3FromRows(
			mgl64.Vec3{xx, xy, xz},
			mgl64.Vec3{xy, yy, yz},
			mgl64.Vec3{xz, yz, zz},
		),
	}
}

func subexpressions(w0, w1, w2 float64) (f1, f2, f3, g0, g1, g2 float64) {
	temp0 := w0 + w1
	f1 = temp0 + w2
	temp1 := w0 * w0
	temp2 := temp1 + w1*temp0
	f2 = temp2 + w2*f1
	f3 = w0*temp1 + w1*temp2 + w2*f2
	g0 = f2 + w0*(f1+w0)
	g1 = f2 + w1*(f1+w1)
	g2 = f2 + w2*(f1+w2)
	return f1, f2, f3, g0, g1, g2
}
