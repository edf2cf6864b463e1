package header

import (
	"fmt"

	"github.com/foxboron/go-pciutils/pci/bar"
	"github.com/foxboron/go-pciutils/pci/field"
	"github.com/foxboron/go-pciutils/pci/ids"
)

// PCI-to-PCI Bridge Architecture Specification 1.2
// Section 3.2 PCI-to-PCI Bridge Configuration Space Header Format

const (
	type1BARsEnd        = 0x18
	offPrimaryBus       = 0x18
	offSecondaryBus     = 0x19
	offSubordinateBus   = 0x1A
	offSecondaryLatency = 0x1B
)

// Type1 is the bridge header.
type Type1 struct {
	Common
	PrimaryBus       uint8
	SecondaryBus     uint8
	SubordinateBus   uint8
	SecondaryLatency uint8
}

var _ Header = &Type1{}

func parseType1(c Common) (*Type1, error) {
	h := &Type1{Common: c}
	for _, f := range []struct {
		dst *uint8
		off int
	}{
		{&h.PrimaryBus, offPrimaryBus},
		{&h.SecondaryBus, offSecondaryBus},
		{&h.SubordinateBus, offSubordinateBus},
		{&h.SecondaryLatency, offSecondaryLatency},
	} {
		v, err := field.Le8(c.raw, f.off)
		if err != nil {
			return nil, fmt.Errorf("bridge bus numbers: %w", err)
		}
		*f.dst = v
	}
	return h, nil
}

func (h *Type1) Layout() Layout { return Bridge }

// BARs decodes the two registers at 0x10-0x17.
func (h *Type1) BARs() ([]bar.BAR, error) {
	return h.bars(type1BARsEnd)
}

func (h *Type1) Describe(names ids.Names, verbosity int) string {
	s := h.describe(names)
	if verbosity >= 1 {
		s += fmt.Sprintf("\n\tBus: primary=%02x, secondary=%02x, subordinate=%02x, sec-latency=%d",
			h.PrimaryBus, h.SecondaryBus, h.SubordinateBus, h.SecondaryLatency)
	}
	return s
}
