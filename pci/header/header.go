package header

import (
	"fmt"
	"strings"

	"github.com/foxboron/go-pciutils/pci/bar"
	"github.com/foxboron/go-pciutils/pci/field"
	"github.com/foxboron/go-pciutils/pci/ids"
)

// PCI Local Bus Specification 3.0
// Section 6.1 Configuration Space Organization

// Size is the length of the standardized header region.
const Size = 0x40

// Header Type register
const (
	layoutMask    = 0b0111_1111
	multiFunction = 0b1000_0000
)

// Status register
const (
	StatusCapabilityList uint16 = 1 << 4
)

// Offsets shared by every layout.
const (
	offVendorID          = 0x00
	offDeviceID          = 0x02
	offCommand           = 0x04
	offStatus            = 0x06
	offRevisionID        = 0x08
	offProgIF            = 0x09
	offSubClass          = 0x0A
	offBaseClass         = 0x0B
	offHeaderType        = 0x0E
	offBARs              = 0x10
	offCapabilityPointer = 0x34
)

// Layout selects the type specific part of the header.
type Layout uint8

const (
	Endpoint Layout = 0
	Bridge   Layout = 1
)

func (l Layout) String() string {
	if l == Endpoint {
		return "endpoint"
	}
	return "bridge"
}

// LayoutOf reads the Header Type byte of b. The multi-function bit is
// ignored; any layout other than 0 is treated as a bridge.
func LayoutOf(b []byte) (Layout, error) {
	t, err := field.Le8(b, offHeaderType)
	if err != nil {
		return 0, err
	}
	if t&layoutMask == 0 {
		return Endpoint, nil
	}
	return Bridge, nil
}

// Header is a decoded configuration header, either *Type0 or *Type1.
type Header interface {
	Base() *Common
	Layout() Layout
	// BARs decodes the base address registers of the layout.
	BARs() ([]bar.BAR, error)
	// Describe renders the header the way lspci does. names may be nil.
	Describe(names ids.Names, verbosity int) string
}

// Common holds the fields every layout shares.
type Common struct {
	VendorID          uint16
	DeviceID          uint16
	Command           uint16
	Status            uint16
	RevisionID        uint8
	ProgIF            uint8
	SubClass          uint8
	BaseClass         uint8
	HeaderType        uint8
	CapabilityPointer uint8

	raw []byte
}

func (c *Common) Base() *Common { return c }

// Raw is the captured header bytes.
func (c *Common) Raw() []byte { return c.raw }

// MultiFunction reports bit 7 of the Header Type register.
func (c *Common) MultiFunction() bool {
	return c.HeaderType&multiFunction != 0
}

// HasCapabilityList reports the capability list bit of the Status register.
// It also gates the walk of the extended capability list.
func (c *Common) HasCapabilityList() bool {
	return c.Status&StatusCapabilityList != 0
}

// ClassCode is base class << 8 | sub class.
func (c *Common) ClassCode() uint16 {
	return uint16(c.BaseClass)<<8 | uint16(c.SubClass)
}

func (c *Common) bars(end int) ([]bar.BAR, error) {
	b, err := field.Slice(c.raw, offBARs, end)
	if err != nil {
		return nil, err
	}
	return bar.Decode(b)
}

func (c *Common) describe(names ids.Names) string {
	rev := ""
	if c.RevisionID > 0 {
		rev = fmt.Sprintf("(rev %02x)", c.RevisionID)
	}
	s := fmt.Sprintf("%s: %s %s %s",
		ids.SubclassName(names, c.BaseClass, c.SubClass),
		ids.VendorName(names, c.VendorID),
		ids.DeviceName(names, c.VendorID, c.DeviceID),
		rev)
	return strings.TrimSpace(s)
}

func parseCommon(b []byte) (Common, error) {
	var c Common
	var err error
	u16 := func(dst *uint16, off int) {
		if err == nil {
			*dst, err = field.Le16(b, off)
		}
	}
	u8 := func(dst *uint8, off int) {
		if err == nil {
			*dst, err = field.Le8(b, off)
		}
	}
	u16(&c.VendorID, offVendorID)
	u16(&c.DeviceID, offDeviceID)
	u16(&c.Command, offCommand)
	u16(&c.Status, offStatus)
	u8(&c.RevisionID, offRevisionID)
	u8(&c.ProgIF, offProgIF)
	u8(&c.SubClass, offSubClass)
	u8(&c.BaseClass, offBaseClass)
	u8(&c.HeaderType, offHeaderType)
	u8(&c.CapabilityPointer, offCapabilityPointer)
	if err != nil {
		return Common{}, fmt.Errorf("common header: %w", err)
	}
	c.raw = make([]byte, len(b))
	copy(c.raw, b)
	return c, nil
}

// Parse decodes a header. Any field missing from b fails the whole header.
func Parse(b []byte) (Header, error) {
	layout, err := LayoutOf(b)
	if err != nil {
		return nil, fmt.Errorf("header type: %w", err)
	}
	c, err := parseCommon(b)
	if err != nil {
		return nil, err
	}
	if layout == Endpoint {
		return parseType0(c)
	}
	return parseType1(c)
}
