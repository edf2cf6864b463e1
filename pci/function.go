// Package pci ties the decoders together into the model of one PCI function.
package pci

import (
	"fmt"
	"io"
	"strings"

	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/bar"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/foxboron/go-pciutils/pci/caps"
	"github.com/foxboron/go-pciutils/pci/header"
	"github.com/foxboron/go-pciutils/pci/ids"
	"github.com/foxboron/go-pciutils/pci/vdc"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// Kernel holds the kernel driver bound to a function and the module that
// provides it. Empty names are not rendered.
type Kernel struct {
	Driver string
	Module string
}

// Function is the decoded snapshot of one PCI function.
type Function struct {
	Address bdf.Address
	Header  header.Header
	// Capabilities is nil and CapabilitiesErr is set when the traditional
	// capability list could not be read.
	Capabilities    []caps.Capability
	CapabilitiesErr error
	Kernel          Kernel

	a   access.Accessor
	log logr.Logger
}

type Option func(*Function)

func WithKernel(k Kernel) Option {
	return func(f *Function) {
		f.Kernel = k
	}
}

func WithLogger(l logr.Logger) Option {
	return func(f *Function) {
		f.log = l
	}
}

// New reads the header of the function behind a and scans its capabilities.
// A header that cannot be read in full fails New. A failed capability scan is
// recorded in CapabilitiesErr.
func New(addr bdf.Address, a access.Accessor, opts ...Option) (*Function, error) {
	f := &Function{Address: addr, a: a, log: logr.Discard()}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithValues("function", addr.String())

	b, err := a.Read(0, header.Size)
	if err != nil && len(b) < header.Size {
		return nil, errors.Wrapf(err, "reading header of %s", addr)
	}
	f.Header, err = header.Parse(b)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding header of %s", addr)
	}
	if bars, err := f.Header.BARs(); err == nil {
		for i, r := range bars {
			if r.ReservedBit {
				f.log.Info("I/O BAR has the reserved bit set", "bar", i, "address", r.Address)
			}
		}
	}
	f.Capabilities, f.CapabilitiesErr = caps.NewWalker(a, caps.WithLogger(f.log)).Scan(f.Header)
	return f, nil
}

// ID returns the vendor ID, device ID and class code as a fully populated
// filter.
func (f *Function) ID() vdc.Filter {
	c := f.Header.Base()
	return vdc.Of(c.VendorID, c.DeviceID, c.BaseClass, c.SubClass)
}

// MatchesSlot reports whether the function address matches a partial
// address filter.
func (f *Function) MatchesSlot(filter bdf.Address) bool {
	return filter.Matches(f.Address)
}

// MatchesID reports whether the function matches a vendor/device/class
// filter.
func (f *Function) MatchesID(filter vdc.Filter) bool {
	return filter.Matches(f.ID())
}

func regions(bars []bar.BAR) []string {
	var lines []string
	reg := 0
	for _, b := range bars {
		switch {
		case b == (bar.BAR{}):
		case !b.IsAllocated():
			lines = append(lines, fmt.Sprintf("Region %d: %s [disabled]", reg, b))
		default:
			lines = append(lines, fmt.Sprintf("Region %d: %s", reg, b))
		}
		reg += b.Width() / 4
	}
	return lines
}

// Describe renders the function the way lspci does. names may be nil, in
// which case every name is a numeric placeholder.
func (f *Function) Describe(names ids.Names, verbosity int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", f.Address, f.Header.Describe(names, verbosity))
	if verbosity < 1 {
		return strings.TrimSpace(sb.String())
	}
	if bars, err := f.Header.BARs(); err == nil {
		for _, l := range regions(bars) {
			fmt.Fprintf(&sb, "\t%s\n", l)
		}
	}
	if f.CapabilitiesErr != nil {
		sb.WriteString("\tCapabilities: <access denied>\n")
	}
	for _, c := range f.Capabilities {
		fmt.Fprintf(&sb, "\tCapabilities: [%x] %s\n", c.Offset(), c.Render(verbosity))
	}
	if f.Kernel.Driver != "" {
		fmt.Fprintf(&sb, "\tKernel driver in use: %s\n", f.Kernel.Driver)
	}
	if f.Kernel.Module != "" {
		fmt.Fprintf(&sb, "\tKernel modules: %s\n", f.Kernel.Module)
	}
	return strings.TrimSpace(sb.String())
}

// Sizes of the hex dump tiers.
const (
	ConfigHeader   = header.Size
	ConfigLegacy   = 0x100
	ConfigExtended = 0x1000
)

// ConfigSize is the number of bytes dumped at hex dump tier n.
func ConfigSize(tier int) int {
	switch {
	case tier <= 0:
		return 0
	case tier <= 2:
		return ConfigHeader
	case tier == 3:
		return ConfigLegacy
	}
	return ConfigExtended
}

// Config reads the raw bytes for hex dump tier n. The header tier is served
// from the decoded snapshot. A short read returns what was read.
func (f *Function) Config(tier int) ([]byte, error) {
	n := ConfigSize(tier)
	if n == 0 {
		return nil, nil
	}
	if raw := f.Header.Base().Raw(); n <= len(raw) {
		return append([]byte(nil), raw[:n]...), nil
	}
	b, err := f.a.Read(0, n)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, errors.Wrapf(err, "reading config of %s", f.Address)
	}
	return b, nil
}

// Selector combines the lspci -s and -d filters. A function is selected when
// it matches any of the slot filters and any of the ID filters; an empty list
// selects everything.
type Selector struct {
	Slots []bdf.Address
	IDs   []vdc.Filter
}

// MatchesSlot checks addr against the slot filters only.
func (s Selector) MatchesSlot(addr bdf.Address) bool {
	if len(s.Slots) == 0 {
		return true
	}
	for _, slot := range s.Slots {
		if slot.Matches(addr) {
			return true
		}
	}
	return false
}

// MatchesID checks id against the ID filters only.
func (s Selector) MatchesID(id vdc.Filter) bool {
	if len(s.IDs) == 0 {
		return true
	}
	for _, filter := range s.IDs {
		if filter.Matches(id) {
			return true
		}
	}
	return false
}

func (s Selector) Matches(f *Function) bool {
	return s.MatchesSlot(f.Address) && s.MatchesID(f.ID())
}
