package mesh

import "github.com/go-gl/mathgl/mgl64"

// Summary describes a mesh for reports and the HTTP service.
type Summary struct {
	Name            string     `json:"name"`
	Triangles       int        `json:"triangles"`
	Min             [3]float32 `json:"min"`
	Max             [3]float32 `json:"max"`
	Area            float64    `json:"area"`
	Volume          float64    `json:"volume"`
	CenterOfGravity mgl64.Vec3 `json:"center_of_gravity"`
	Inertia         mgl64.Mat3 `json:"inertia"`
	Closed          bool       `json:"closed"`
}

// Summarize computes a Summary at unit density. Open meshes are integrated
// all the same; Closed tells the caller how far to trust the result.
func (m *Mesh) Summarize() Summary {
	s := Summary{
		Name:      m.Name,
		Triangles: m.Len(),
		Closed:    m.IsClosed(false),
	}
	if m.IsEmpty() {
		return s
	}
	s.Min, s.Max = m.Min(), m.Max()
	s.Area = m.Area()
	p := ComputeMassProperties(m.triangles, 1)
	s.Volume, s.CenterOfGravity, s.Inertia = p.Volume, p.CenterOfGravity, p.Inertia
	return s
}
