package packet

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"
)

// MaxString is the longest string WriteS emits. Longer strings are cut so a
// packet always fits in one frame.
const MaxString = 60000

// Writer builds one inspector server packet, opcode first. Multi-byte
// fields are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

func NewWriterWithOpcode(opcode byte) *Writer {
	w := NewWriter()
	w.WriteC(opcode)
	return w
}

func (w *Writer) WriteC(v byte) { w.buf = append(w.buf, v) }

func (w *Writer) WriteH(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *Writer) WriteD(v int32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }

// WriteS writes a NUL-terminated UTF-8 string. Embedded NULs are dropped
// and the string is cut to at most MaxString bytes on a rune boundary.
func (w *Writer) WriteS(s string) {
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) > MaxString {
		n := MaxString
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Len() int { return len(w.buf) }
