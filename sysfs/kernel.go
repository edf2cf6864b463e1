package sysfs

import (
	"bufio"
	"bytes"
	"path"
	"strings"

	"github.com/foxboron/go-pciutils/pci"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/spf13/afero"
)

func (s *Sysfs) readLink(name string) (string, bool) {
	lr, ok := s.fs.(afero.LinkReader)
	if !ok {
		return "", false
	}
	target, err := lr.ReadlinkIfPossible(name)
	if err != nil {
		return "", false
	}
	return path.Base(target), true
}

func (s *Sysfs) ueventDriver(addr bdf.Address) string {
	b, err := afero.ReadFile(s.fs, s.Path(addr, "uevent"))
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "DRIVER="); ok {
			return name
		}
	}
	return ""
}

// Driver returns the name of the bound kernel driver, or "" when none is
// bound. The driver symlink is preferred over the uevent file.
func (s *Sysfs) Driver(addr bdf.Address) string {
	if name, ok := s.readLink(s.Path(addr, "driver")); ok {
		return name
	}
	return s.ueventDriver(addr)
}

// Module returns the kernel module providing the bound driver, or "" for
// built-in drivers.
func (s *Sysfs) Module(addr bdf.Address) string {
	name, _ := s.readLink(s.Path(addr, "driver", "module"))
	return name
}

func (s *Sysfs) Kernel(addr bdf.Address) pci.Kernel {
	return pci.Kernel{
		Driver: s.Driver(addr),
		Module: s.Module(addr),
	}
}
