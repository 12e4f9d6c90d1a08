package mesh

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// RemoveDuplicates selects how duplicate polygons are collapsed.
// Two triangles are duplicates when the sums of their three vertices are
// equal. This is a cheap approximation: distinct triangles whose vertex
// sums coincide are treated as duplicates too.
type RemoveDuplicates int

const (
	// RemoveNone keeps every triangle.
	RemoveNone RemoveDuplicates = iota
	// RemoveSingle keeps the first triangle of every duplicate group.
	RemoveSingle
	// RemoveAll drops every triangle that has a duplicate, unless that
	// would leave half of the triangles or fewer, in which case it behaves
	// like RemoveSingle.
	RemoveAll
)

func (r RemoveDuplicates) String() string {
	switch r {
	case RemoveNone:
		return "none"
	case RemoveSingle:
		return "single"
	case RemoveAll:
		return "all"
	default:
		return fmt.Sprintf("RemoveDuplicates(%d)", int(r))
	}
}

// ParseRemoveDuplicates maps "none", "single" or "all" (any case) to a
// policy. An empty string is RemoveNone.
func ParseRemoveDuplicates(s string) (RemoveDuplicates, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RemoveNone, nil
	case "single":
		return RemoveSingle, nil
	case "all":
		return RemoveAll, nil
	}
	return RemoveNone, fmt.Errorf("mesh: unknown duplicate policy %q", s)
}

// RemoveEmptyAreas returns the triangles whose area, computed from the
// vertices, is greater than threshold. A negative threshold keeps
// degenerate triangles.
func RemoveEmptyAreas(triangles []Triangle, threshold float32) []Triangle {
	return lo.Filter(triangles, func(t Triangle, _ int) bool {
		return t.Area() > threshold
	})
}

// RemoveDuplicatePolygons applies policy to triangles. Survivors keep their
// original relative order.
func RemoveDuplicatePolygons(triangles []Triangle, policy RemoveDuplicates) []Triangle {
	switch policy {
	case RemoveSingle:
		return lo.UniqBy(triangles, Triangle.vertexSum)
	case RemoveAll:
		counts := lo.CountValuesBy(triangles, Triangle.vertexSum)
		unique := lo.Filter(triangles, func(t Triangle, _ int) bool {
			return counts[t.vertexSum()] == 1
		})
		if 2*len(unique) <= len(triangles) {
			return lo.UniqBy(triangles, Triangle.vertexSum)
		}
		return unique
	default:
		return triangles
	}
}

