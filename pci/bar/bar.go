package bar

import (
	"fmt"

	"github.com/foxboron/go-pciutils/pci/field"
)

// PCI Local Bus Specification 3.0
// Section 6.2.5.1 Address Maps

// Kind is the address space a BAR decodes into.
type Kind uint8

const (
	Memory32 Kind = iota
	Memory64
	IO
)

func (k Kind) String() string {
	switch k {
	case Memory32:
		return "32-bit"
	case Memory64:
		return "64-bit"
	case IO:
		return "I/O"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

const (
	ioSpace      = 0b1
	ioReserved   = 0b10
	memTypeMask  = 0b110
	memType64    = 0b100
	prefetchable = 0b1000

	ioAddressMask  = ^uint32(0b11)
	memAddressMask = ^uint32(0b1111)
)

// BAR is one decoded Base Address Register.
type BAR struct {
	Kind         Kind
	Address      uint64
	Prefetchable bool
	// ReservedBit is set for I/O BARs that have bit 1 set.
	ReservedBit bool
	// Truncated is set for a 64-bit BAR in the last slot of the region,
	// which has no upper half. Only the low word is decoded.
	Truncated bool
}

// IsAllocated reports whether firmware assigned an address to the BAR.
func (b BAR) IsAllocated() bool {
	return b.Address != 0
}

// Width is the number of bytes of register space the BAR occupies.
func (b BAR) Width() int {
	if b.Kind == Memory64 && !b.Truncated {
		return 8
	}
	return 4
}

func (b BAR) String() string {
	if b.Kind == IO {
		return fmt.Sprintf("I/O ports at %x", b.Address)
	}
	pf := "non-prefetchable"
	if b.Prefetchable {
		pf = "prefetchable"
	}
	if b.Truncated {
		return fmt.Sprintf("Memory at %x <invalid-64bit-slot>", b.Address)
	}
	return fmt.Sprintf("Memory at %x (%s, %s)", b.Address, b.Kind, pf)
}

// Decode scans b as consecutive little-endian BAR words. A 64-bit memory BAR
// consumes two words. b must be a whole number of words, otherwise Decode
// fails with field.ErrOutOfBounds.
func Decode(b []byte) ([]BAR, error) {
	var bars []BAR
	for off := 0; off < len(b); {
		word, err := field.Le32(b, off)
		if err != nil {
			return nil, err
		}
		off += 4
		switch {
		case word&ioSpace != 0:
			bars = append(bars, BAR{
				Kind:        IO,
				Address:     uint64(word & ioAddressMask),
				ReservedBit: word&ioReserved != 0,
			})
		case word&memTypeMask != memType64:
			bars = append(bars, BAR{
				Kind:         Memory32,
				Address:      uint64(word & memAddressMask),
				Prefetchable: word&prefetchable != 0,
			})
		case off == len(b):
			bars = append(bars, BAR{
				Kind:         Memory64,
				Address:      uint64(word & memAddressMask),
				Prefetchable: word&prefetchable != 0,
				Truncated:    true,
			})
		default:
			upper, err := field.Le32(b, off)
			if err != nil {
				return nil, fmt.Errorf("upper half of 64-bit BAR at %#x: %w", off-4, err)
			}
			off += 4
			bars = append(bars, BAR{
				Kind:         Memory64,
				Address:      uint64(upper)<<32 | uint64(word&memAddressMask),
				Prefetchable: word&prefetchable != 0,
			})
		}
	}
	return bars, nil
}
