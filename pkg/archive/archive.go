// Package archive loads STL files packed into .zip, .7z or .rar archives.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/chazu/stlkit/pkg/stl"
	"github.com/nwaples/rardecode/v2"
)

// ErrUnsupported reports an archive extension this package cannot open.
var ErrUnsupported = errors.New("archive: unsupported format")

// Entry is one solid found in an archive member.
type Entry struct {
	// Name is the member path inside the archive.
	Name string
	Mesh *mesh.Mesh
}

// member is an STL file extracted into memory. The binary reader needs a
// seekable stream to validate sizes, which archive readers do not offer.
type member struct {
	name string
	data []byte
}

// ReadMeshes decodes every solid of every .stl member of the archive at
// path, ordered by member name.
func ReadMeshes(path string, mode stl.Mode, opts mesh.Options) ([]Entry, error) {
	members, err := extract(path)
	if err != nil {
		return nil, err
	}
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })

	var entries []Entry
	for _, m := range members {
		meshes, err := stl.ReadAll(bytes.NewReader(m.data), mode, opts)
		if err != nil {
			return nil, fmt.Errorf("archive: %s: %w", m.name, err)
		}
		for _, msh := range meshes {
			entries = append(entries, Entry{Name: m.name, Mesh: msh})
		}
	}
	return entries, nil
}

// IsArchive reports whether path has an extension ReadMeshes handles.
func IsArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".7z", ".rar":
		return true
	}
	return false
}

func extract(path string) ([]member, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".zip":
		return extractZIP(path)
	case ".7z":
		return extract7Z(path)
	case ".rar":
		return extractRAR(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

func isSTLFile(name string) bool {
	return strings.ToLower(filepath.Ext(name)) == ".stl"
}

func readMember(name string, open func() (io.ReadCloser, error)) (member, error) {
	rc, err := open()
	if err != nil {
		return member{}, fmt.Errorf("archive: open %s: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return member{}, fmt.Errorf("archive: read %s: %w", name, err)
	}
	return member{name: name, data: data}, nil
}

func extractZIP(path string) ([]member, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer reader.Close()

	var members []member
	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !isSTLFile(file.Name) {
			continue
		}
		m, err := readMember(file.Name, file.Open)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func extract7Z(path string) ([]member, error) {
	reader, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer reader.Close()

	var members []member
	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !isSTLFile(file.Name) {
			continue
		}
		m, err := readMember(file.Name, file.Open)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func extractRAR(path string) ([]member, error) {
	reader, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer reader.Close()

	var members []member
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		if header.IsDir || !isSTLFile(header.Name) {
			continue
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", header.Name, err)
		}
		members = append(members, member{name: header.Name, data: data})
	}
	return members, nil
}
