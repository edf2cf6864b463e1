package sysfs

import (
	"strconv"
	"strings"

	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/foxboron/go-pciutils/pci/vdc"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Attributes are the identification files the kernel exports next to the
// config file. They stay readable for unprivileged users.
type Attributes struct {
	Vendor   uint16
	Device   uint16
	Class    uint32
	Revision uint8

	SubsystemVendor *uint16
	SubsystemDevice *uint16
	// Bridges only.
	SecondaryBus   *uint8
	SubordinateBus *uint8
}

// ID returns the vendor, device and 16-bit class code as a filter.
func (a *Attributes) ID() vdc.Filter {
	return vdc.Of(a.Vendor, a.Device, uint8(a.Class>>16), uint8(a.Class>>8))
}

// ReadUint reads an integer attribute of addr. sysfs prints IDs as 0x
// prefixed hex and bus numbers as decimal.
func (s *Sysfs) ReadUint(addr bdf.Address, name string, bitSize int) (uint64, error) {
	b, err := afero.ReadFile(s.fs, s.Path(addr, name))
	if err != nil {
		return 0, err
	}
	text := strings.TrimSpace(string(b))
	v, err := strconv.ParseUint(text, 0, bitSize)
	if err != nil {
		return 0, errors.Wrapf(err, "attribute %s of %s", name, addr)
	}
	return v, nil
}

// ReadOptionalUint is ReadUint returning nil when the attribute does not
// exist.
func (s *Sysfs) ReadOptionalUint(addr bdf.Address, name string, bitSize int) (*uint64, error) {
	v, err := s.ReadUint(addr, name, bitSize)
	if access.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optional[T uint8 | uint16](s *Sysfs, addr bdf.Address, name string, bitSize int) (*T, error) {
	v, err := s.ReadOptionalUint(addr, name, bitSize)
	if err != nil || v == nil {
		return nil, err
	}
	t := T(*v)
	return &t, nil
}

// Attributes reads the identification attributes of addr.
func (s *Sysfs) Attributes(addr bdf.Address) (*Attributes, error) {
	var a Attributes
	for _, f := range []struct {
		name    string
		bitSize int
		set     func(uint64)
	}{
		{"vendor", 16, func(v uint64) { a.Vendor = uint16(v) }},
		{"device", 16, func(v uint64) { a.Device = uint16(v) }},
		{"class", 24, func(v uint64) { a.Class = uint32(v) }},
		{"revision", 8, func(v uint64) { a.Revision = uint8(v) }},
	} {
		v, err := s.ReadUint(addr, f.name, f.bitSize)
		if err != nil {
			return nil, err
		}
		f.set(v)
	}
	var err error
	if a.SubsystemVendor, err = optional[uint16](s, addr, "subsystem_vendor", 16); err != nil {
		return nil, err
	}
	if a.SubsystemDevice, err = optional[uint16](s, addr, "subsystem_device", 16); err != nil {
		return nil, err
	}
	if a.SecondaryBus, err = optional[uint8](s, addr, "secondary_bus_number", 8); err != nil {
		return nil, err
	}
	if a.SubordinateBus, err = optional[uint8](s, addr, "subordinate_bus_number", 8); err != nil {
		return nil, err
	}
	return &a, nil
}
