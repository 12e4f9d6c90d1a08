package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/go-gl/mathgl/mgl32"
)

const facet = `solid %s
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 1 0 0
    vertex 0 1 0
  endloop
endfacet
endsolid %s
`

func asciiSolid(name string) string {
	return strings.ReplaceAll(facet, "%s", name)
}

func binarySolid(t *testing.T, name string) []byte {
	t.Helper()
	m := mesh.New(name, []mesh.Triangle{
		{Vertices: [3]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}},
		{Vertices: [3]mgl32.Vec3{{0, 0, 0}, {0, 1, 0}, {0, 0, 1}}},
	}, mesh.Options{})
	var buf bytes.Buffer
	if err := stl.Write(&buf, m, stl.SaveOptions{Mode: stl.Binary}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeZip(t *testing.T, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parts.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadMeshesZip(t *testing.T) {
	path := writeZip(t, map[string][]byte{
		"b/bracket.STL": binarySolid(t, "bracket"),
		"a/plates.stl":  []byte(asciiSolid("top") + asciiSolid("bottom")),
		"readme.txt":    []byte("not a mesh"),
		"renders/a.png": {0x89, 'P', 'N', 'G'},
		"empty_dir/":    nil,
	})

	entries, err := ReadMeshes(path, stl.Automatic, mesh.Options{})
	if err != nil {
		t.Fatalf("ReadMeshes: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	want := []struct {
		member, name string
		triangles    int
	}{
		{"a/plates.stl", "top", 1},
		{"a/plates.stl", "bottom", 1},
		{"b/bracket.STL", "", 2},
	}
	for i, w := range want {
		e := entries[i]
		if e.Name != w.member {
			t.Errorf("entry %d: member = %q, want %q", i, e.Name, w.member)
		}
		if w.name != "" && e.Mesh.Name != w.name {
			t.Errorf("entry %d: mesh name = %q, want %q", i, e.Mesh.Name, w.name)
		}
		if e.Mesh.Len() != w.triangles {
			t.Errorf("entry %d: %d triangles, want %d", i, e.Mesh.Len(), w.triangles)
		}
	}
}

func TestReadMeshesBadMember(t *testing.T) {
	path := writeZip(t, map[string][]byte{
		"broken.stl": []byte("solid broken\nfacet normal 0 0 1\nouter loop\n"),
	})
	_, err := ReadMeshes(path, stl.ASCII, mesh.Options{})
	if !errors.Is(err, stl.ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
	if !strings.Contains(err.Error(), "broken.stl") {
		t.Errorf("error %q does not name the member", err)
	}
}

func TestReadMeshesUnsupported(t *testing.T) {
	_, err := ReadMeshes("parts.tar.gz", stl.Automatic, mesh.Options{})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestIsArchive(t *testing.T) {
	tests := map[string]bool{
		"a.zip":   true,
		"A.7Z":    true,
		"x/y.rar": true,
		"a.stl":   false,
		"zip":     false,
	}
	for path, want := range tests {
		if got := IsArchive(path); got != want {
			t.Errorf("IsArchive(%q) = %v, want %v", path, got, want)
		}
	}
}

// testdata/parts.7z and testdata/parts.rar hold the same stored members in
// this order: b/wedge.stl (one solid, two facets), readme.txt, and
// a/plate.stl (solids "top" and "bottom").
func TestReadMeshesCheckedInArchives(t *testing.T) {
	for _, name := range []string{"parts.7z", "parts.rar"} {
		t.Run(name, func(t *testing.T) {
			entries, err := ReadMeshes(filepath.Join("testdata", name), stl.Automatic, mesh.Options{})
			if err != nil {
				t.Fatalf("ReadMeshes: %v", err)
			}
			want := []struct {
				member, name string
				triangles    int
			}{
				{"a/plate.stl", "top", 1},
				{"a/plate.stl", "bottom", 1},
				{"b/wedge.stl", "wedge", 2},
			}
			if len(entries) != len(want) {
				t.Fatalf("got %d entries, want %d", len(entries), len(want))
			}
			for i, w := range want {
				e := entries[i]
				if e.Name != w.member || e.Mesh.Name != w.name || e.Mesh.Len() != w.triangles {
					t.Errorf("entry %d = {%q %q %d}, want {%q %q %d}",
						i, e.Name, e.Mesh.Name, e.Mesh.Len(), w.member, w.name, w.triangles)
				}
			}
		})
	}
}

func TestReadMeshesCorruptArchive(t *testing.T) {
	for _, name := range []string{"broken.7z", "broken.rar"} {
		path := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(path, []byte("not an archive at all"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadMeshes(path, stl.Automatic, mesh.Options{}); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
