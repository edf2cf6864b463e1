package testfs

import (
	"testing/fstest"

	"github.com/foxboron/go-pciutils/pci/pcitest"
	"github.com/foxboron/go-pciutils/sysfs"
	"github.com/spf13/afero"
)

// TestFS is a wrapper around MapFS to easily inject sysfs entries and convert
// them to afero.Fs.
type TestFS struct {
	mapfs fstest.MapFS
}

func NewTestFS() *TestFS {
	return &TestFS{mapfs: fstest.MapFS{}}
}

// With allows you to compose several overlay files into the in-memory
// filesystem.
func (f *TestFS) With(files ...fstest.MapFS) *TestFS {
	for _, mapfs := range files {
		for path, file := range mapfs {
			f.mapfs[path] = file
		}
	}
	return f
}

// Fs converts the composed files into an afero.Fs.
func (f *TestFS) Fs() afero.Fs {
	return pcitest.FromMapFS(f.mapfs)
}

// Open returns a Sysfs reading the composed files.
func (f *TestFS) Open(opts ...sysfs.Option) *sysfs.Sysfs {
	return sysfs.New(append([]sysfs.Option{sysfs.WithFs(f.Fs())}, opts...)...)
}
