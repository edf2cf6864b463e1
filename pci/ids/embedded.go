package ids

import "github.com/siderolabs/go-pcidb/pkg/pcidb"

// Embedded is the vendor and product table compiled into siderolabs/go-pcidb.
// It knows no classes or subsystems and serves as a fallback when no pci.ids
// is installed.
type Embedded struct{}

var _ Names = Embedded{}

func (Embedded) Vendor(vendor uint16) (string, bool) {
	return pcidb.LookupVendor(vendor)
}

func (Embedded) Device(vendor, device uint16) (string, bool) {
	return pcidb.LookupProduct(vendor, device)
}

func (Embedded) Subclass(baseClass, subClass uint8) (string, bool) {
	return "", false
}

func (Embedded) Subsystem(vendor, device, subVendor, subDevice uint16) (string, bool) {
	return "", false
}
