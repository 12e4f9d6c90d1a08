package mesh

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestMassPropertiesUnitCube(t *testing.T) {
	tests := []struct {
		name   string
		offset mgl64.Vec3
	}{
		{"at origin", mgl64.Vec3{}},
		{"translated", mgl64.Vec3{10, -20, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("cube", unitCube(), Options{})
			m.Translate(tt.offset)

			volume, cog, inertia := m.MassProperties()
			if math.Abs(volume-1) > 1e-6 {
				t.Errorf("volume = %v, want 1", volume)
			}
			wantCOG := tt.offset.Add(mgl64.Vec3{0.5, 0.5, 0.5})
			if !cog.ApproxEqualThreshold(wantCOG, 1e-5) {
				t.Errorf("cog = %v, want %v", cog, wantCOG)
			}
			for row := 0; row < 3; row++ {
				for col := 0; col < 3; col++ {
					want := 0.0
					if row == col {
						want = 1.0 / 6
					}
					if got := inertia.At(row, col); math.Abs(got-want) > 1e-5 {
						t.Errorf("inertia[%d][%d] = %v, want %v", row, col, got, want)
					}
				}
			}
		})
	}
}

func TestMassPropertiesWithDensity(t *testing.T) {
	m := New("cube", unitCube(), Options{})
	m.Translate(mgl64.Vec3{-0.5, -0.5, -0.5})

	volume, mass, cog, inertia := m.MassPropertiesWithDensity(2)
	if math.Abs(volume-1) > 1e-6 {
		t.Errorf("volume = %v, want 1", volume)
	}
	if math.Abs(mass-2) > 1e-6 {
		t.Errorf("mass = %v, want 2", mass)
	}
	if cog.Len() > 1e-6 {
		t.Errorf("cog = %v, want origin", cog)
	}
	if got := inertia.At(1, 1); math.Abs(got-1.0/3) > 1e-6 {
		t.Errorf("inertia[1][1] = %v, want 1/3", got)
	}
	if inertia.At(0, 2) != inertia.At(2, 0) {
		t.Errorf("inertia is not symmetric: %v", inertia)
	}
}

func TestMassPropertiesInsideOut(t *testing.T) {
	// Flipping the winding negates the signed volume.
	triangles := unitCube()
	for i := range triangles {
		v := &triangles[i].Vertices
		v[1], v[2] = v[2], v[1]
	}
	p := ComputeMassProperties(triangles, 1)
	if math.Abs(p.Volume+1) > 1e-6 {
		t.Errorf("volume = %v, want -1", p.Volume)
	}
}

func TestMassPropertiesEmpty(t *testing.T) {
	p := ComputeMassProperties(nil, 1)
	if p != (MassProperties{}) {
		t.Errorf("ComputeMassProperties(nil) = %+v, want zero value", p)
	}
}

func TestSummarize(t *testing.T) {
	m := New("cube", unitCube(), Options{})
	s := m.Summarize()
	if s.Name != "cube" || s.Triangles != 12 || !s.Closed {
		t.Fatalf("Summarize = %+v", s)
	}
	if s.Min != [3]float32{0, 0, 0} || s.Max != [3]float32{1, 1, 1} {
		t.Errorf("bounds = %v %v", s.Min, s.Max)
	}
	if math.Abs(s.Area-6) > 1e-6 || math.Abs(s.Volume-1) > 1e-6 {
		t.Errorf("area %f volume %f", s.Area, s.Volume)
	}
	for i, c := range s.CenterOfGravity {
		if math.Abs(c-0.5) > 1e-6 {
			t.Errorf("cog[%d] = %f", i, c)
		}
	}

	open := New("open", unitCube()[:10], Options{})
	if open.Summarize().Closed {
		t.Error("open mesh reported closed")
	}

	empty := New("empty", nil, Options{}).Summarize()
	if empty.Triangles != 0 || empty.Volume != 0 || !empty.Closed {
		t.Errorf("empty summary = %+v", empty)
	}
}
