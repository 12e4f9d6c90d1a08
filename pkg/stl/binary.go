package stl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// now is replaced in tests to pin the header timestamp.
var now = time.Now

// recordsPerChunk bounds the buffer used to read binary records, so a
// bogus count does not allocate ahead of the data.
const recordsPerChunk = 4096

func readCount(r io.Reader) (uint32, error) {
	var buf [CountSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("%w: unable to read triangle count", ErrTruncated)
		}
		return 0, fmt.Errorf("stl: binary: read count: %w", err)
	}
	count := binary.LittleEndian.Uint32(buf[:])
	if count >= MaxCount {
		return 0, fmt.Errorf("%w: %d triangles, limit is %d", ErrTooManyTriangles, count, MaxCount)
	}
	return count, nil
}

func readRecords(r io.Reader, count uint32) ([]mesh.Triangle, error) {
	triangles := make([]mesh.Triangle, 0, min(int(count), recordsPerChunk))
	buf := make([]byte, min(int(count), recordsPerChunk)*mesh.RecordSize)
	for remaining := int(count); remaining > 0; {
		n := min(remaining, recordsPerChunk)
		chunk := buf[:n*mesh.RecordSize]
		if _, err := io.ReadFull(r, chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: expected %d triangles, got %d",
					ErrTruncated, count, len(triangles))
			}
			return nil, fmt.Errorf("stl: binary: read triangles: %w", err)
		}
		for off := 0; off < len(chunk); off += mesh.RecordSize {
			triangles = append(triangles, decodeRecord(chunk[off:off+mesh.RecordSize]))
		}
		remaining -= n
	}
	return triangles, nil
}

func getVec(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func putVec(b []byte, v mgl32.Vec3) {
	for i := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v[i]))
	}
}

func decodeRecord(b []byte) mesh.Triangle {
	return mesh.Triangle{
		Normal:   getVec(b[0:]),
		Vertices: [3]mgl32.Vec3{getVec(b[12:]), getVec(b[24:]), getVec(b[36:])},
		Attr:     binary.LittleEndian.Uint16(b[48:]),
	}
}

func encodeRecord(b []byte, t *mesh.Triangle) {
	putVec(b[0:], t.Normal)
	for i, v := range t.Vertices {
		putVec(b[12+i*12:], v)
	}
	binary.LittleEndian.PutUint16(b[48:], t.Attr)
}

// binaryName recovers a solid name from a binary header.
func binaryName(header []byte) string {
	return string(bytes.TrimRight(header, " \t\r\n\v\f\x00"))
}

// binaryHeader builds the 80 byte header: product, version, timestamp and
// name, space padded or cut to size.
func binaryHeader(name string) []byte {
	text := fmt.Sprintf("%s (%s) %s %s", ProductName, Version,
		now().Format("2006-01-02 15:04:05.000000"), name)
	header := bytes.Repeat([]byte{' '}, HeaderSize)
	copy(header, text)
	return header
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func writeBinary(w io.Writer, name string, triangles []mesh.Triangle) error {
	cw := &countingWriter{w: w}
	if _, err := cw.Write(binaryHeader(name)); err != nil {
		return fmt.Errorf("stl: write binary header: %w", err)
	}
	var count [CountSize]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(triangles)))
	if _, err := cw.Write(count[:]); err != nil {
		return fmt.Errorf("stl: write binary count: %w", err)
	}

	buf := make([]byte, min(len(triangles), recordsPerChunk)*mesh.RecordSize)
	for start := 0; start < len(triangles); start += recordsPerChunk {
		batch := triangles[start:min(start+recordsPerChunk, len(triangles))]
		chunk := buf[:len(batch)*mesh.RecordSize]
		for i := range batch {
			encodeRecord(chunk[i*mesh.RecordSize:], &batch[i])
		}
		if _, err := cw.Write(chunk); err != nil {
			return fmt.Errorf("stl: write binary triangles: %w", err)
		}
	}

	if len(triangles) > 0 && cw.n <= HeaderSize+CountSize {
		return ErrShortWrite
	}
	return nil
}
