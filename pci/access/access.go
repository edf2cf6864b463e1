package access

import (
	"errors"
	"os"
)

// This package is the only I/O boundary of the decoders. Everything above it
// reads configuration space through an Accessor, whether the bytes come from a
// live register file or from a captured dump.

// Accessor gives random access to the configuration space of one function.
// Offsets are absolute within that function's configuration space.
type Accessor interface {
	// Read returns up to length bytes starting at offset. Callers that need
	// the full length must check len of the result themselves.
	Read(offset uint64, length int) ([]byte, error)
	// Write stores b at offset and returns the number of bytes accepted.
	Write(offset uint64, b []byte) (int, error)
}

// IsNotFound reports whether err means the backing register file does not
// exist for this function.
func IsNotFound(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
