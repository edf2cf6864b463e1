// Package vdc implements the vendor:device:class filter of lspci -d.
package vdc

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/utils/ptr"
)

// ErrInvalidFilter is returned for malformed filter text.
var ErrInvalidFilter = errors.New("invalid vendor/device/class filter")

// Format documents the syntax accepted by Parse.
const Format = "[<vendor>]:[<device>][:<class>]"

// Filter selects functions by vendor ID, device ID and the 16-bit class code
// (base class << 8 | sub class). Nil fields match anything.
type Filter struct {
	Vendor *uint16
	Device *uint16
	Class  *uint16
}

// Parse reads a filter, see Format.
func Parse(s string) (Filter, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Filter{}, errors.Wrapf(ErrInvalidFilter, "%q", s)
	}
	var f Filter
	var err error
	if f.Vendor, err = hex16(parts[0]); err != nil {
		return Filter{}, errors.Wrapf(err, "vendor of %q", s)
	}
	if f.Device, err = hex16(parts[1]); err != nil {
		return Filter{}, errors.Wrapf(err, "device of %q", s)
	}
	if len(parts) == 3 {
		if f.Class, err = hex16(parts[2]); err != nil {
			return Filter{}, errors.Wrapf(err, "class of %q", s)
		}
	}
	return f, nil
}

func hex16(s string) (*uint16, error) {
	if s == "" || s == "*" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFilter, "%v", err)
	}
	return ptr.To(uint16(v)), nil
}

func optEqual(a, b *uint16) bool {
	return a == nil || b == nil || *a == *b
}

// Matches reports whether every field present in both filters is equal.
func (f Filter) Matches(o Filter) bool {
	return optEqual(f.Vendor, o.Vendor) &&
		optEqual(f.Device, o.Device) &&
		optEqual(f.Class, o.Class)
}

// Of builds a fully specified filter describing one function.
func Of(vendor, device uint16, baseClass, subClass uint8) Filter {
	return Filter{
		Vendor: ptr.To(vendor),
		Device: ptr.To(device),
		Class:  ptr.To(uint16(baseClass)<<8 | uint16(subClass)),
	}
}
