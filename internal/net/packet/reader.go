package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// Reader decodes the fields of one inspector payload. Byte 0 is the opcode.
// A read past the end returns the zero value and records an error that
// sticks until the payload is dropped; handlers check Err once after reading
// all fields.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1}
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// take returns the next n bytes, or nil once the payload is exhausted.
func (r *Reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: %s at offset %d of %d-byte packet", errs.ErrOutOfRange, field, r.off, len(r.data))
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) ReadC() byte {
	if b := r.take(1, "byte"); b != nil {
		return b[0]
	}
	return 0
}

// ReadH reads a little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if b := r.take(2, "uint16"); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

// ReadD reads a little-endian int32.
func (r *Reader) ReadD() int32 {
	if b := r.take(4, "int32"); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

// ReadS reads a NUL-terminated UTF-8 string. A missing terminator is an
// error.
func (r *Reader) ReadS() string {
	if r.err != nil || r.off > len(r.data) {
		return ""
	}
	end := bytes.IndexByte(r.data[r.off:], 0)
	if end < 0 {
		r.take(len(r.data)-r.off+1, "string")
		return ""
	}
	s := string(r.data[r.off : r.off+end])
	r.off += end + 1
	return s
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Err reports the first read that ran past the end of the payload.
func (r *Reader) Err() error { return r.err }
