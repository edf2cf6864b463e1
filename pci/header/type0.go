package header

import (
	"fmt"

	"github.com/foxboron/go-pciutils/pci/bar"
	"github.com/foxboron/go-pciutils/pci/field"
	"github.com/foxboron/go-pciutils/pci/ids"
)

// Section 6.2 Configuration Header Type 00h

const (
	type0BARsEnd         = 0x28
	offSubsystemVendorID = 0x2C
	offSubsystemID       = 0x2E
)

// Type0 is the endpoint header.
type Type0 struct {
	Common
	SubsystemVendorID uint16
	SubsystemID       uint16
}

var _ Header = &Type0{}

func parseType0(c Common) (*Type0, error) {
	h := &Type0{Common: c}
	var err error
	if h.SubsystemVendorID, err = field.Le16(c.raw, offSubsystemVendorID); err != nil {
		return nil, fmt.Errorf("subsystem vendor: %w", err)
	}
	if h.SubsystemID, err = field.Le16(c.raw, offSubsystemID); err != nil {
		return nil, fmt.Errorf("subsystem id: %w", err)
	}
	return h, nil
}

func (h *Type0) Layout() Layout { return Endpoint }

// BARs decodes the six registers at 0x10-0x27.
func (h *Type0) BARs() ([]bar.BAR, error) {
	return h.bars(type0BARsEnd)
}

func (h *Type0) subsystem(names ids.Names) string {
	name := fmt.Sprintf("Device %04x", h.SubsystemID)
	if names != nil {
		if s, ok := names.Subsystem(h.VendorID, h.DeviceID, h.SubsystemVendorID, h.SubsystemID); ok {
			name = s
		}
	}
	return fmt.Sprintf("Subsystem: %s %s", ids.VendorName(names, h.SubsystemVendorID), name)
}

func (h *Type0) Describe(names ids.Names, verbosity int) string {
	s := h.describe(names)
	if verbosity >= 1 {
		s += "\n\t" + h.subsystem(names)
	}
	return s
}
