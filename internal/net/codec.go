package net

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/l1jgo/worldtree/internal/core/errs"
)

// Inspector frames are [uint16 LE total length, header included][payload].
const (
	headerSize = 2
	MaxPayload = 0xFFFF - headerSize
)

// ReadFrame reads one frame from r and returns its payload. A header
// announcing an empty or oversized payload fails with errs.ErrOutOfRange.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	n := int(binary.LittleEndian.Uint16(header[:])) - headerSize
	if n <= 0 {
		return nil, fmt.Errorf("%w: frame payload length %d", errs.ErrOutOfRange, n)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", n, err)
	}
	return payload, nil
}

// WriteFrame writes data as one frame with a single Write call.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) == 0 || len(data) > MaxPayload {
		return fmt.Errorf("%w: frame payload length %d, max %d", errs.ErrOutOfRange, len(data), MaxPayload)
	}
	frame := make([]byte, headerSize+len(data))
	binary.LittleEndian.PutUint16(frame, uint16(len(frame)))
	copy(frame[headerSize:], data)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
