// Package caps walks the capability lists of a configuration space and
// decodes the individual capability structures.
package caps

import (
	"fmt"

	"github.com/foxboron/go-pciutils/pci/access"
)

// Capability is one node of either capability list.
type Capability interface {
	// ID is the capability ID. Traditional IDs only use the low byte.
	ID() uint16
	// Offset is the absolute offset of the capability header.
	Offset() uint64
	// Extended reports whether the node belongs to the PCI Express
	// extended list.
	Extended() bool
	Render(verbosity int) string
}

// Traditional capability IDs
// PCI Code and ID Assignment Specification 1.11, Chapter 2
const (
	PowerManagementID uint8 = 0x01
	MSIID             uint8 = 0x05
	PCIExpressID      uint8 = 0x10
	MSIXID            uint8 = 0x11
)

type decoder func(a access.Accessor, offset uint8) (Capability, error)

// decoders maps traditional IDs to specialized decoders. IDs missing from the
// table decode as Generic. Extended IDs always decode as GenericExtended.
var decoders = map[uint8]decoder{
	PowerManagementID: decodePowerManagement,
}

func flag(name string, set bool) string {
	if set {
		return name + "+"
	}
	return name + "-"
}

// Generic is a traditional capability without a specialized decoder.
type Generic struct {
	CapID  uint8
	offset uint8
}

var _ Capability = &Generic{}

func (g *Generic) ID() uint16     { return uint16(g.CapID) }
func (g *Generic) Offset() uint64 { return uint64(g.offset) }
func (g *Generic) Extended() bool { return false }

func (g *Generic) Render(verbosity int) string {
	return fmt.Sprintf("Capability %#x at %#x", g.CapID, g.offset)
}

// GenericExtended is a node of the extended list.
type GenericExtended struct {
	CapID   uint16
	Version uint8
	offset  uint16
}

var _ Capability = &GenericExtended{}

func (g *GenericExtended) ID() uint16     { return g.CapID }
func (g *GenericExtended) Offset() uint64 { return uint64(g.offset) }
func (g *GenericExtended) Extended() bool { return true }

func (g *GenericExtended) Render(verbosity int) string {
	return fmt.Sprintf("Capability %#x at %#x", g.CapID, g.offset)
}
