package access

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// File is an Accessor bound to a live register file, usually the sysfs
// "config" attribute of a PCI function. The file is opened for every call so
// a File holds no descriptor between reads.
type File struct {
	fs   afero.Fs
	path string
}

var _ Accessor = &File{}

// NewFile returns an Accessor for path on fs.
func NewFile(fs afero.Fs, path string) *File {
	return &File{fs: fs, path: path}
}

// Path is the register file backing this accessor.
func (f *File) Path() string {
	return f.path
}

// Read performs a positioned read. A short read returns the bytes that were
// read together with an error wrapping io.ErrUnexpectedEOF; the kernel
// truncates config reads for unprivileged users.
func (f *File) Read(offset uint64, length int) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	fd, err := f.fs.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open register file: %w", err)
	}
	defer fd.Close()

	buf := make([]byte, length)
	n, err := fd.ReadAt(buf, int64(offset))
	if n == length {
		return buf, nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return buf[:n], errors.Wrapf(err, "read %d bytes at %#x from %s", length, offset, f.path)
}

// Write performs a positioned write. This has side effects on the device and
// is never issued by the decoders.
func (f *File) Write(offset uint64, b []byte) (int, error) {
	fd, err := f.fs.OpenFile(f.path, os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("couldn't open register file: %w", err)
	}
	defer fd.Close()

	n, err := fd.WriteAt(b, int64(offset))
	if err != nil {
		return n, errors.Wrapf(err, "write %d bytes at %#x to %s", len(b), offset, f.path)
	}
	return n, nil
}
