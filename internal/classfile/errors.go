package classfile

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by DecodeError. Match them with errors.Is.
var (
	// ErrBadMagic reports input that does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("bad magic number")

	// ErrTruncated reports input that ends before a structure is complete.
	ErrTruncated = errors.New("truncated class file")

	// ErrUnsupportedVersion reports a major version outside the
	// supported range.
	ErrUnsupportedVersion = errors.New("unsupported class file version")

	// ErrMalformed reports structurally invalid content such as an
	// unknown constant pool tag, a bad constant pool index, or a
	// reserved opcode.
	ErrMalformed = errors.New("malformed class file")
)

// DecodeError describes where decoding stopped and why.
type DecodeError struct {
	// Offset is the byte offset into the class file at which the
	// offending structure starts.
	Offset int

	// Err wraps one of the sentinel errors, possibly with detail.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("class file offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// errAt builds a DecodeError wrapping sentinel with formatted detail.
func errAt(offset int, sentinel error, format string, args ...any) *DecodeError {
	if format == "" {
		return &DecodeError{Offset: offset, Err: sentinel}
	}
	return &DecodeError{
		Offset: offset,
		Err:    fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)),
	}
}
