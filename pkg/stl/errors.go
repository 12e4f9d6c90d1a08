package stl

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports an ASCII grammar violation.
	ErrMalformed = errors.New("stl: malformed input")
	// ErrTruncated reports a stream that ended before the data it declared.
	ErrTruncated = errors.New("stl: truncated input")
	// ErrTooManyTriangles reports a binary count at or above MaxCount.
	ErrTooManyTriangles = errors.New("stl: triangle count too large")
	// ErrSizeMismatch reports a binary count that disagrees with the
	// stream length.
	ErrSizeMismatch = errors.New("stl: triangle count does not match size")
	// ErrInvalidMode reports an unknown Mode.
	ErrInvalidMode = errors.New("stl: invalid mode")
	// ErrTextMode reports a destination that encodes text instead of
	// passing bytes through.
	ErrTextMode = errors.New("stl: handles should be in binary mode")
	// ErrShortWrite reports a binary save that wrote no triangle data.
	ErrShortWrite = errors.New("stl: triangle data was not written")
	// ErrEmpty reports a file without any solid.
	ErrEmpty = errors.New("stl: no solid found")
)

// ParseError is an ASCII parse failure. Recoverable is true when the reader
// had not consumed anything past the sniffed header, so the same bytes can
// still be decoded as binary.
type ParseError struct {
	Recoverable bool
	Reason      string
	// Err is ErrMalformed or ErrTruncated.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stl: ascii: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
