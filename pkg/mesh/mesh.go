package mesh

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/samber/lo"
)

// Options controls the preprocessing done by New. The zero value computes
// normals and applies no filtering.
type Options struct {
	// SkipNormals keeps the normals found in the input instead of
	// recomputing them from the vertices.
	SkipNormals bool

	// RemoveEmptyAreas drops facets whose area is not greater than
	// AreaThreshold.
	RemoveEmptyAreas bool
	AreaThreshold    float32

	RemoveDuplicates RemoveDuplicates
}

// Mesh is a named triangle mesh with lazily cached derived attributes.
// It is not safe for concurrent use; Copy it to share between goroutines.
type Mesh struct {
	Name string

	triangles []Triangle

	areas     cell[[]float32]
	units     cell[[]mgl32.Vec3]
	centroids cell[[]mgl32.Vec3]
	min       cell[mgl32.Vec3]
	max       cell[mgl32.Vec3]
}

// New builds a mesh that takes ownership of triangles. Empty-area removal
// runs before duplicate removal, and normals are computed last.
func New(name string, triangles []Triangle, opts Options) *Mesh {
	if opts.RemoveEmptyAreas {
		triangles = RemoveEmptyAreas(triangles, opts.AreaThreshold)
	}
	triangles = RemoveDuplicatePolygons(triangles, opts.RemoveDuplicates)

	m := &Mesh{Name: name, triangles: triangles}
	if !opts.SkipNormals {
		ComputeNormals(m.triangles)
	}
	return m
}

// Concat joins the triangles of several meshes, in order, into a new mesh.
// Stored normals are kept as they are.
func Concat(name string, meshes ...*Mesh) *Mesh {
	n := lo.SumBy(meshes, func(m *Mesh) int { return m.Len() })
	triangles := make([]Triangle, 0, n)
	for _, m := range meshes {
		triangles = append(triangles, m.triangles...)
	}
	return &Mesh{Name: name, triangles: triangles}
}

// Copy returns a deep copy of the mesh without any cached attributes.
func (m *Mesh) Copy() *Mesh {
	triangles := make([]Triangle, len(m.triangles))
	copy(triangles, m.triangles)
	return &Mesh{Name: m.Name, triangles: triangles}
}

// Len returns the number of triangles.
func (m *Mesh) Len() int {
	return len(m.triangles)
}

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.triangles) == 0
}

// Triangles returns the backing slice. Writes through it mutate the mesh.
func (m *Mesh) Triangles() []Triangle {
	return m.triangles
}

// Triangle returns a copy of triangle i.
func (m *Mesh) Triangle(i int) Triangle {
	return m.triangles[i]
}

// Vertex returns corner slot (0, 1 or 2) of triangle i.
func (m *Mesh) Vertex(i, slot int) mgl32.Vec3 {
	return m.triangles[i].Vertices[slot]
}

// SetVertex overwrites corner slot of triangle i.
func (m *Mesh) SetVertex(i, slot int, v mgl32.Vec3) {
	m.triangles[i].Vertices[slot] = v
}

// Normal returns the stored normal of triangle i.
func (m *Mesh) Normal(i int) mgl32.Vec3 {
	return m.triangles[i].Normal
}

// Attr returns the attribute byte count of triangle i.
func (m *Mesh) Attr(i int) uint16 {
	return m.triangles[i].Attr
}

// SetAttr overwrites the attribute byte count of triangle i.
func (m *Mesh) SetAttr(i int, attr uint16) {
	m.triangles[i].Attr = attr
}

// Points returns the nine coordinates of triangle i, vertex by vertex.
func (m *Mesh) Points(i int) [9]float32 {
	var p [9]float32
	for slot, v := range m.triangles[i].Vertices {
		copy(p[slot*3:], v[:])
	}
	return p
}

// SetPoints overwrites the nine coordinates of triangle i.
func (m *Mesh) SetPoints(i int, p [9]float32) {
	for slot := range m.triangles[i].Vertices {
		copy(m.triangles[i].Vertices[slot][:], p[slot*3:slot*3+3])
	}
}

// Axis returns coordinate axis (0=x, 1=y, 2=z) of each vertex of triangle i.
func (m *Mesh) Axis(i, axis int) [3]float32 {
	t := &m.triangles[i]
	return [3]float32{t.Vertices[0][axis], t.Vertices[1][axis], t.Vertices[2][axis]}
}

// ---------------------------------------------------------------------------
// Derived attributes
// ---------------------------------------------------------------------------

// UpdateNormals recomputes every normal from the vertices and refreshes the
// cached areas and centroids.
func (m *Mesh) UpdateNormals() {
	m.UpdateNormalsOnly()
	m.UpdateAreas()
	m.UpdateCentroids()
}

// UpdateNormalsOnly recomputes every normal and leaves all caches alone.
func (m *Mesh) UpdateNormalsOnly() {
	ComputeNormals(m.triangles)
}

// Areas returns the per-triangle areas, computing them from the stored
// normals on first use. The returned slice is the cache itself.
func (m *Mesh) Areas() []float32 {
	return m.areas.get(func() []float32 { return ComputeAreas(m.triangles) })
}

func (m *Mesh) UpdateAreas() { m.areas.set(ComputeAreas(m.triangles)) }
func (m *Mesh) SetAreas(areas []float32) { m.areas.set(areas) }

// Units returns the per-triangle unit normals derived from the stored
// normals and Areas. Zero-area triangles get a zero vector.
func (m *Mesh) Units() []mgl32.Vec3 {
	return m.units.get(func() []mgl32.Vec3 { return ComputeUnits(m.triangles, m.Areas()) })
}

func (m *Mesh) UpdateUnits() { m.units.set(ComputeUnits(m.triangles, m.Areas())) }
func (m *Mesh) SetUnits(units []mgl32.Vec3) { m.units.set(units) }

// Centroids returns the per-triangle centroids.
func (m *Mesh) Centroids() []mgl32.Vec3 {
	return m.centroids.get(func() []mgl32.Vec3 { return ComputeCentroids(m.triangles) })
}

func (m *Mesh) UpdateCentroids() { m.centroids.set(ComputeCentroids(m.triangles)) }
func (m *Mesh) SetCentroids(centroids []mgl32.Vec3) { m.centroids.set(centroids) }

// Min returns the component-wise minimum over all vertices.
func (m *Mesh) Min() mgl32.Vec3 {
	return m.min.get(func() mgl32.Vec3 { mn, _ := BoundingBox(m.triangles); return mn })
}

// Max returns the component-wise maximum over all vertices.
func (m *Mesh) Max() mgl32.Vec3 {
	return m.max.get(func() mgl32.Vec3 { _, mx := BoundingBox(m.triangles); return mx })
}

func (m *Mesh) UpdateMin() {
	mn, _ := BoundingBox(m.triangles)
	m.min.set(mn)
}

func (m *Mesh) UpdateMax() {
	_, mx := BoundingBox(m.triangles)
	m.max.set(mx)
}

func (m *Mesh) SetMin(v mgl32.Vec3) { m.min.set(v) }
func (m *Mesh) SetMax(v mgl32.Vec3) { m.max.set(v) }

// Invalidate drops every cached attribute so the next access recomputes it.
func (m *Mesh) Invalidate() {
	m.areas.reset()
	m.units.reset()
	m.centroids.reset()
	m.min.reset()
	m.max.reset()
}

// UnitNormals returns the stored normals scaled to unit length. Normals of
// length zero stay zero. The result is not cached.
func (m *Mesh) UnitNormals() []mgl32.Vec3 {
	return UnitNormals(m.triangles)
}

// Area returns the total surface area.
func (m *Mesh) Area() float64 {
	return lo.SumBy(m.Areas(), func(a float32) float64 { return float64(a) })
}
