package stl

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/stlkit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl32"
)

// ASCIICodec reads and writes single ASCII solids. Implementations must
// behave identically to PortableCodec, including recoverability flags and
// the bytes handed back after endsolid.
type ASCIICodec interface {
	// ReadSolid parses one solid from header followed by r. header holds
	// the bytes already consumed from r. rest holds the bytes read past
	// the end of the solid, which the caller must make available to the
	// next read. Parse failures are *ParseError.
	ReadSolid(r io.Reader, header []byte) (solid *Solid, rest []byte, err error)

	// WriteSolid writes one solid.
	WriteSolid(w io.Writer, name string, triangles []mesh.Triangle) error
}

// PortableCodec is the line based ASCII codec.
type PortableCodec struct{}

var _ ASCIICodec = PortableCodec{}

// errEndSolid marks an endsolid line where a facet was expected.
var errEndSolid = errors.New("endsolid")

// ReadSolid implements ASCIICodec.
func (PortableCodec) ReadSolid(r io.Reader, header []byte) (*Solid, []byte, error) {
	p := &lineReader{r: r, recoverable: true}
	p.lines = bytes.Split(header, []byte("\n"))

	first, err := p.next()
	if err != nil {
		return nil, nil, err
	}
	if !bytes.HasPrefix(bytes.ToLower(first), []byte("solid")) {
		return nil, nil, p.fail(ErrMalformed, fmt.Sprintf("%q should start with %q", first, "solid"))
	}
	if len(p.lines) == 0 {
		return nil, nil, p.fail(ErrTruncated, "no lines found, impossible to read")
	}
	if len(first) > len("solid") && !bytes.HasPrefix(bytes.ToLower(first), []byte("solid ")) {
		logger.Printf("ascii solid line should be \"solid <name>\", the producing application may be faulty: %q", first)
	}
	solid := &Solid{Name: string(bytes.TrimSpace(first[len("solid"):]))}

	for {
		t, err := p.facet()
		if errors.Is(err, errEndSolid) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		solid.Triangles = append(solid.Triangles, t)
	}
	return solid, bytes.Join(p.lines, []byte("\n")), nil
}

// lineReader is an incremental line queue over a stream. The last element
// of the queue is always a possibly partial line; popping it pulls
// BufferSize chunks from the stream until the line is complete.
type lineReader struct {
	r           io.Reader
	lines       [][]byte
	recoverable bool
	eof         bool
}

func (p *lineReader) fail(err error, reason string) *ParseError {
	return &ParseError{Recoverable: p.recoverable, Reason: reason, Err: err}
}

func (p *lineReader) fill() ([]byte, error) {
	buf := make([]byte, BufferSize)
	n, err := io.ReadFull(p.r, buf)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		p.eof = true
	default:
		return nil, fmt.Errorf("stl: ascii: read: %w", err)
	}
	return buf[:n], nil
}

// next pops the next non-blank line, trimmed but not lowercased.
func (p *lineReader) next() ([]byte, error) {
	for {
		if len(p.lines) == 0 {
			return nil, p.fail(ErrTruncated, "unable to find more lines")
		}
		raw := p.lines[0]
		p.lines = p.lines[1:]

		if len(p.lines) == 0 {
			// Past this point the header bytes alone no longer describe
			// what has been consumed.
			p.recoverable = false
			raw = raw[:len(raw):len(raw)]
			for len(p.lines) == 0 && !p.eof {
				chunk, err := p.fill()
				if err != nil {
					return nil, err
				}
				more := bytes.Split(chunk, []byte("\n"))
				raw = append(raw, more[0]...)
				p.lines = more[1:]
			}
		}

		if raw = bytes.TrimSpace(raw); len(raw) > 0 {
			return raw, nil
		}
	}
}

// vector reads a "<prefix> <f> <f> <f>" line. An endsolid line yields
// errEndSolid.
func (p *lineReader) vector(prefix string) (mgl32.Vec3, error) {
	raw, err := p.next()
	if err != nil {
		return mgl32.Vec3{}, err
	}
	line := strings.ToLower(string(raw))
	switch {
	case strings.HasPrefix(line, prefix):
	case strings.HasPrefix(line, "endsolid"), strings.HasPrefix(line, "end solid"):
		return mgl32.Vec3{}, errEndSolid
	default:
		return mgl32.Vec3{}, p.fail(ErrMalformed, fmt.Sprintf("%q should start with %q", line, prefix))
	}

	fields := strings.Fields(line[len(prefix):])
	if len(fields) != 3 {
		return mgl32.Vec3{}, p.fail(ErrMalformed, fmt.Sprintf("incorrect value %q", line))
	}
	var v mgl32.Vec3
	for i, f := range fields {
		// Out of range literals come back as ±Inf with ErrRange; keep them.
		x, err := strconv.ParseFloat(f, 32)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return mgl32.Vec3{}, p.fail(ErrMalformed, fmt.Sprintf("incorrect value %q", line))
		}
		v[i] = float32(x)
	}
	return v, nil
}

// keyword reads a line that must equal want, ignoring case.
func (p *lineReader) keyword(want string) error {
	raw, err := p.next()
	if err != nil {
		return err
	}
	if !strings.EqualFold(string(raw), want) {
		return p.fail(ErrMalformed, fmt.Sprintf("%q should be %q", raw, want))
	}
	return nil
}

func (p *lineReader) facet() (mesh.Triangle, error) {
	var t mesh.Triangle
	var err error
	if t.Normal, err = p.vector("facet normal"); err != nil {
		return t, err
	}
	if err = p.keyword("outer loop"); err != nil {
		return t, err
	}
	for slot := range t.Vertices {
		if t.Vertices[slot], err = p.vector("vertex"); err != nil {
			if errors.Is(err, errEndSolid) {
				return t, p.fail(ErrMalformed, "endsolid inside a facet")
			}
			return t, err
		}
	}
	if err = p.keyword("endloop"); err != nil {
		return t, err
	}
	if err = p.keyword("endfacet"); err != nil {
		return t, err
	}
	return t, nil
}

// WriteSolid implements ASCIICodec. Coordinates are written with six
// decimals.
func (PortableCodec) WriteSolid(w io.Writer, name string, triangles []mesh.Triangle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "solid %s\n", name)
	for i := range triangles {
		t := &triangles[i]
		fmt.Fprintf(bw, "facet normal %f %f %f\n", t.Normal[0], t.Normal[1], t.Normal[2])
		bw.WriteString("  outer loop\n")
		for _, v := range t.Vertices {
			fmt.Fprintf(bw, "    vertex %f %f %f\n", v[0], v[1], v[2])
		}
		bw.WriteString("  endloop\n")
		bw.WriteString("endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("stl: write ascii: %w", err)
	}
	return nil
}
