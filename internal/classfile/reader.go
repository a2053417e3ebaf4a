package classfile

import "encoding/binary"

// reader is a forward-only big-endian cursor over a byte slice.
// The first out-of-bounds read records ErrTruncated in err; later
// reads return zero values, so callers check err once per structure.
type reader struct {
	buf  []byte
	off  int
	base int // absolute offset of buf[0] in the class file
	err  error
}

func newReader(buf []byte, base int) *reader {
	return &reader{buf: buf, base: base}
}

// pos returns the absolute offset of the cursor.
func (r *reader) pos() int { return r.base + r.off }

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = errAt(r.pos(), ErrTruncated, "need %d bytes, have %d", n, len(r.buf)-r.off)
		return false
	}
	return true
}

func (r *reader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// bytes returns the next n bytes without copying.
func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) skip(n int) {
	if r.need(n) {
		r.off += n
	}
}
