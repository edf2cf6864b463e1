// Package bdf implements PCI bus addresses (domain:bus:device.function).
//
// Every component of an Address is optional so the same type doubles as a
// slot filter: an Address with only Device set matches every function of
// that device number on every bus.
package bdf

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/utils/ptr"
)

// ErrInvalidAddress is returned for text that is not a bus address.
var ErrInvalidAddress = errors.New("invalid bus address")

// FilterFormat documents the syntax accepted by ParseFilter.
const FilterFormat = "[[[[<domain>]:]<bus>]:][<device>][.[<func>]]"

type Address struct {
	Domain   *uint16
	Bus      *uint8
	Device   *uint8
	Function *uint8
}

// New returns a fully specified Address.
func New(domain uint16, bus, device, function uint8) Address {
	return Address{
		Domain:   ptr.To(domain),
		Bus:      ptr.To(bus),
		Device:   ptr.To(device),
		Function: ptr.To(function),
	}
}

var addressRegexp = regexp.MustCompile(`^(?:([0-9A-Fa-f]{4}):)?([0-9A-Fa-f]{2}):([0-9A-Fa-f]{2})\.([0-9A-Fa-f])$`)

// Parse reads a canonical address such as "0000:00:1f.6" or "00:1f.6". A
// missing domain is domain 0.
func Parse(s string) (Address, error) {
	m := addressRegexp.FindStringSubmatch(s)
	if m == nil {
		return Address{}, errors.Wrapf(ErrInvalidAddress, "%q", s)
	}
	var domain uint64
	if m[1] != "" {
		d, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			return Address{}, errors.Wrapf(ErrInvalidAddress, "%q: %v", s, err)
		}
		domain = d
	}
	var parts [3]uint8
	for i, p := range m[2:] {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return Address{}, errors.Wrapf(ErrInvalidAddress, "%q: %v", s, err)
		}
		parts[i] = uint8(v)
	}
	return New(uint16(domain), parts[0], parts[1], parts[2]), nil
}

// ParseFilter reads the lspci slot syntax, see FilterFormat. Empty components
// and "*" match anything.
func ParseFilter(s string) (Address, error) {
	var a Address
	slot, fn, hasFn := strings.Cut(s, ".")
	if hasFn {
		v, err := component(fn, 0x7)
		if err != nil {
			return Address{}, errors.Wrapf(err, "function of %q", s)
		}
		a.Function = v
	}

	fields := strings.Split(slot, ":")
	if len(fields) > 3 {
		return Address{}, errors.Wrapf(ErrInvalidAddress, "%q: too many components", s)
	}
	dev, err := component(fields[len(fields)-1], 0x1f)
	if err != nil {
		return Address{}, errors.Wrapf(err, "device of %q", s)
	}
	a.Device = dev
	if len(fields) >= 2 {
		bus, err := component(fields[len(fields)-2], 0xff)
		if err != nil {
			return Address{}, errors.Wrapf(err, "bus of %q", s)
		}
		a.Bus = bus
	}
	if len(fields) == 3 && fields[0] != "" && fields[0] != "*" {
		d, err := strconv.ParseUint(fields[0], 16, 16)
		if err != nil {
			return Address{}, errors.Wrapf(ErrInvalidAddress, "domain of %q: %v", s, err)
		}
		a.Domain = ptr.To(uint16(d))
	}
	return a, nil
}

func component(s string, max uint64) (*uint8, error) {
	if s == "" || s == "*" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAddress, "%v", err)
	}
	if v > max {
		return nil, errors.Wrapf(ErrInvalidAddress, "%#x exceeds %#x", v, max)
	}
	return ptr.To(uint8(v)), nil
}

func optEqual[T comparable](a, b *T) bool {
	return a == nil || b == nil || *a == *b
}

// Matches reports whether every component present in both a and o is equal.
// An absent component never causes a mismatch.
func (a Address) Matches(o Address) bool {
	return optEqual(a.Domain, o.Domain) &&
		optEqual(a.Bus, o.Bus) &&
		optEqual(a.Device, o.Device) &&
		optEqual(a.Function, o.Function)
}

// optCompare orders an absent component before any present one.
func optCompare[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// Compare orders addresses domain first, then bus, device and function.
func Compare(a, b Address) int {
	if c := optCompare(a.Domain, b.Domain); c != 0 {
		return c
	}
	if c := optCompare(a.Bus, b.Bus); c != 0 {
		return c
	}
	if c := optCompare(a.Device, b.Device); c != 0 {
		return c
	}
	return optCompare(a.Function, b.Function)
}

// Canonical is the sysfs directory name, "dddd:bb:dd.f". Absent components
// are rendered as zero.
func (a Address) Canonical() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x",
		ptr.Deref(a.Domain, 0), ptr.Deref(a.Bus, 0),
		ptr.Deref(a.Device, 0), ptr.Deref(a.Function, 0))
}

// String omits the domain when it is 0.
func (a Address) String() string {
	if ptr.Deref(a.Domain, 0) != 0 {
		return a.Canonical()
	}
	return fmt.Sprintf("%02x:%02x.%x",
		ptr.Deref(a.Bus, 0), ptr.Deref(a.Device, 0), ptr.Deref(a.Function, 0))
}
