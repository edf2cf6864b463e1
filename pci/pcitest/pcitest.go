// Package pcitest builds configuration space images and filesystems for
// tests.
package pcitest

import (
	"encoding/binary"
	"path/filepath"
	"testing/fstest"

	"github.com/spf13/afero"
)

// Config is a configuration space image that can be patched in place.
type Config []byte

// New returns a zeroed image of size bytes.
func New(size int) Config {
	return make(Config, size)
}

// Endpoint returns an Intel 82540EM (8086:100e, Ethernet controller, rev 03)
// type 0 header padded to size bytes.
func Endpoint(size int) Config {
	return New(size).
		Set16(0x00, 0x8086).
		Set16(0x02, 0x100e).
		Set16(0x04, 0x0007).
		Set8(0x08, 0x03).
		Set8(0x0a, 0x00).
		Set8(0x0b, 0x02).
		Set8(0x0e, 0x00).
		Set32(0x10, 0xfebc0000).
		Set32(0x18, 0x0000c001).
		Set16(0x2c, 0x8086).
		Set16(0x2e, 0x001e)
}

// Bridge returns an Intel PCI bridge (8086:244e, rev d2) type 1 header with
// buses 00/01/02 padded to size bytes.
func Bridge(size int) Config {
	return New(size).
		Set16(0x00, 0x8086).
		Set16(0x02, 0x244e).
		Set8(0x08, 0xd2).
		Set8(0x0a, 0x04).
		Set8(0x0b, 0x06).
		Set8(0x0e, 0x01).
		Set8(0x18, 0x00).
		Set8(0x19, 0x01).
		Set8(0x1a, 0x02).
		Set8(0x1b, 0x20)
}

func (c Config) Set8(off int, v uint8) Config {
	c[off] = v
	return c
}

func (c Config) Set16(off int, v uint16) Config {
	binary.LittleEndian.PutUint16(c[off:], v)
	return c
}

func (c Config) Set32(off int, v uint32) Config {
	binary.LittleEndian.PutUint32(c[off:], v)
	return c
}

// WithCapabilities sets the capability list bit of the Status register and
// points the capability pointer at first.
func (c Config) WithCapabilities(first uint8) Config {
	status := binary.LittleEndian.Uint16(c[0x06:])
	return c.Set16(0x06, status|1<<4).Set8(0x34, first)
}

// Capability writes a traditional capability header at off.
func (c Config) Capability(off, id, next uint8) Config {
	return c.Set8(int(off), id).Set8(int(off)+1, next)
}

// ExtendedCapability writes an extended capability header at off.
func (c Config) ExtendedCapability(off, id uint16, version uint8, next uint16) Config {
	return c.Set16(int(off), id).Set16(int(off)+2, next<<4|uint16(version&0xf))
}

// FromMapFS converts fstest.MapFS to afero.Fs. Symlinks are not supported
// by afero.MemMapFs, so only regular files and directories are copied.
func FromMapFS(files fstest.MapFS) afero.Fs {
	memfs := afero.NewMemMapFs()
	for name, file := range files {
		if file.Mode.IsDir() {
			memfs.MkdirAll(name, 0755)
			continue
		}
		memfs.MkdirAll(filepath.Dir(name), 0755)
		f, err := memfs.Create(name)
		if err != nil {
			continue
		}
		f.Write(file.Data)
		f.Close()
	}
	return memfs
}
