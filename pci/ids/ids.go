// Package ids resolves vendor, device and class names. Lookups are best
// effort: every helper falls back to a numeric placeholder for unknown IDs.
package ids

import "fmt"

// Names is a read-only PCI ID database.
type Names interface {
	Vendor(vendor uint16) (string, bool)
	Device(vendor, device uint16) (string, bool)
	Subclass(baseClass, subClass uint8) (string, bool)
	Subsystem(vendor, device, subVendor, subDevice uint16) (string, bool)
}

// Chain consults each database in order and returns the first hit.
type Chain []Names

var _ Names = Chain{}

func (c Chain) Vendor(vendor uint16) (string, bool) {
	for _, n := range c {
		if s, ok := n.Vendor(vendor); ok {
			return s, true
		}
	}
	return "", false
}

func (c Chain) Device(vendor, device uint16) (string, bool) {
	for _, n := range c {
		if s, ok := n.Device(vendor, device); ok {
			return s, true
		}
	}
	return "", false
}

func (c Chain) Subclass(baseClass, subClass uint8) (string, bool) {
	for _, n := range c {
		if s, ok := n.Subclass(baseClass, subClass); ok {
			return s, true
		}
	}
	return "", false
}

func (c Chain) Subsystem(vendor, device, subVendor, subDevice uint16) (string, bool) {
	for _, n := range c {
		if s, ok := n.Subsystem(vendor, device, subVendor, subDevice); ok {
			return s, true
		}
	}
	return "", false
}

// VendorName returns the vendor name or "Vendor xxxx". n may be nil.
func VendorName(n Names, vendor uint16) string {
	if n != nil {
		if s, ok := n.Vendor(vendor); ok {
			return s
		}
	}
	return fmt.Sprintf("Vendor %04x", vendor)
}

// DeviceName returns the device name or "Device xxxx". n may be nil.
func DeviceName(n Names, vendor, device uint16) string {
	if n != nil {
		if s, ok := n.Device(vendor, device); ok {
			return s
		}
	}
	return fmt.Sprintf("Device %04x", device)
}

// SubclassName returns the sub class name or "SubClass xx". n may be nil.
func SubclassName(n Names, baseClass, subClass uint8) string {
	if n != nil {
		if s, ok := n.Subclass(baseClass, subClass); ok {
			return s
		}
	}
	return fmt.Sprintf("SubClass %02x", subClass)
}
