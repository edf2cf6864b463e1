// Package field reads little-endian integers out of configuration space
// buffers. Every multi-byte access in the decoders goes through here so a
// truncated capture surfaces as ErrOutOfBounds instead of a panic.
package field

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned when a requested byte range is not covered by the
// buffer.
var ErrOutOfBounds = errors.New("byte range out of bounds")

// Slice returns b[start:end] after checking the half-open range against b.
func Slice(b []byte, start, end int) ([]byte, error) {
	if start < 0 || end < start || end > len(b) {
		return nil, errors.Wrapf(ErrOutOfBounds, "range [%#x, %#x) of %d byte buffer", start, end, len(b))
	}
	return b[start:end], nil
}

// Le8 reads the byte at off.
func Le8(b []byte, off int) (uint8, error) {
	s, err := Slice(b, off, off+1)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

// Le16 reads the little-endian word covering [off, off+2).
func Le16(b []byte, off int) (uint16, error) {
	s, err := Slice(b, off, off+2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(s), nil
}

// Le32 reads the little-endian double word covering [off, off+4).
func Le32(b []byte, off int) (uint32, error) {
	s, err := Slice(b, off, off+4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}
