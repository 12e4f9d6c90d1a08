package stl

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/stlkit/pkg/mesh"
)

// stream wraps the input with the ability to give back bytes read past
// the end of an ASCII solid. Seekable inputs rewind; anything else keeps
// the bytes in a pushback buffer.
type stream struct {
	r       io.Reader
	seeker  io.Seeker
	pending []byte
}

func newStream(r io.Reader) *stream {
	s := &stream{r: r}
	if seeker, ok := r.(io.Seeker); ok {
		// Pipes and terminals implement Seek but fail on use.
		if _, err := seeker.Seek(0, io.SeekCurrent); err == nil {
			s.seeker = seeker
		}
	}
	return s
}

func (s *stream) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	return s.r.Read(p)
}

func (s *stream) unread(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if s.seeker != nil {
		if _, err := s.seeker.Seek(-int64(len(b)), io.SeekCurrent); err != nil {
			return fmt.Errorf("stl: rewind: %w", err)
		}
		return nil
	}
	s.pending = append(bytes.Clone(b), s.pending...)
	return nil
}

func (s *stream) tell() (int64, error) {
	return s.seeker.Seek(0, io.SeekCurrent)
}

// Decoder reads consecutive solids from a stream.
type Decoder struct {
	// Codec parses ASCII solids. Nil means PortableCodec.
	Codec ASCIICodec

	s    *stream
	mode Mode
	// binary is set once a binary solid has been read. Binary streams
	// hold a single solid, so anything after it is ignored.
	binary bool
}

// NewDecoder returns a Decoder reading r in the given mode.
func NewDecoder(r io.Reader, mode Mode) *Decoder {
	return &Decoder{s: newStream(r), mode: mode}
}

func (d *Decoder) codec() ASCIICodec {
	if d.Codec == nil {
		return PortableCodec{}
	}
	return d.Codec
}

// Decode reads the next solid. It returns io.EOF at the end of the stream,
// when the next header is blank, and after a binary solid.
func (d *Decoder) Decode() (*Solid, error) {
	if !d.mode.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(d.mode))
	}
	if d.binary {
		return nil, io.EOF
	}

	var start int64
	if d.s.seeker != nil {
		var err error
		if start, err = d.s.tell(); err != nil {
			return nil, fmt.Errorf("stl: tell: %w", err)
		}
	}

	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(d.s, header)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		header = header[:n]
	case err != nil:
		return nil, fmt.Errorf("stl: read header: %w", err)
	}
	if len(bytes.TrimSpace(header)) == 0 {
		return nil, io.EOF
	}

	switch {
	case d.mode == Binary:
		return d.readBinary(header, start, false)
	case d.mode == ASCII:
		return d.readASCII(header)
	case isASCIIHeader(header):
		solid, asciiErr := d.readASCII(header)
		if asciiErr == nil {
			return solid, nil
		}
		var perr *ParseError
		if !errors.As(asciiErr, &perr) {
			return nil, asciiErr
		}
		if perr.Recoverable {
			solid, err := d.readBinary(header, start, false)
			if err != nil {
				return nil, errors.Join(asciiErr, err)
			}
			return solid, nil
		}
		if d.s.seeker == nil {
			return nil, asciiErr
		}
		if _, err := d.s.seeker.Seek(start+HeaderSize, io.SeekStart); err != nil {
			return nil, errors.Join(asciiErr, fmt.Errorf("stl: seek: %w", err))
		}
		solid, err := d.readBinary(header, start, true)
		if err != nil {
			return nil, errors.Join(asciiErr, err)
		}
		return solid, nil
	default:
		return d.readBinary(header, start, false)
	}
}

func isASCIIHeader(header []byte) bool {
	return bytes.HasPrefix(bytes.ToLower(bytes.TrimLeft(header, " \t\r\n\v\f")), []byte("solid"))
}

func (d *Decoder) readASCII(header []byte) (*Solid, error) {
	solid, rest, err := d.codec().ReadSolid(d.s, header)
	if err != nil {
		return nil, err
	}
	if err := d.s.unread(rest); err != nil {
		return nil, err
	}
	return solid, nil
}

func (d *Decoder) readBinary(header []byte, start int64, checkSize bool) (*Solid, error) {
	if len(header) < HeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes", ErrTruncated, len(header))
	}
	count, err := readCount(d.s)
	if err != nil {
		return nil, err
	}
	if checkSize {
		if err := d.checkSize(start, count); err != nil {
			return nil, err
		}
	}
	triangles, err := readRecords(d.s, count)
	if err != nil {
		return nil, err
	}
	d.binary = true
	return &Solid{Name: binaryName(header), Triangles: triangles}, nil
}

// checkSize verifies that the stream holds exactly count records after
// the header, then repositions on the first record.
func (d *Decoder) checkSize(start int64, count uint32) error {
	end, err := d.s.seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("stl: seek: %w", err)
	}
	if got := (end - start - HeaderSize - CountSize) / mesh.RecordSize; got != int64(count) {
		return fmt.Errorf("%w: header says %d triangles, stream holds %d",
			ErrSizeMismatch, count, got)
	}
	if _, err := d.s.seeker.Seek(start+HeaderSize+CountSize, io.SeekStart); err != nil {
		return fmt.Errorf("stl: seek: %w", err)
	}
	return nil
}

// ReadAll decodes every solid in r.
func (d *Decoder) ReadAll() ([]*Solid, error) {
	var solids []*Solid
	for {
		solid, err := d.Decode()
		if err == io.EOF {
			return solids, nil
		}
		if err != nil {
			return solids, err
		}
		solids = append(solids, solid)
	}
}
