package ids

import (
	"fmt"

	"github.com/jaypipes/pcidb"
	"github.com/pkg/errors"
)

// Database is backed by a pci.ids file parsed by jaypipes/pcidb.
type Database struct {
	db *pcidb.PCIDB
}

var _ Names = &Database{}

// Load reads the system pci.ids. When path is set it is used directly,
// otherwise the usual locations below root are searched.
func Load(root, path string) (*Database, error) {
	var opts []*pcidb.WithOption
	if root != "" {
		opts = append(opts, pcidb.WithChroot(root))
	}
	if path != "" {
		opts = append(opts, pcidb.WithDirectPath(path))
	}
	db, err := pcidb.New(opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't load pci.ids")
	}
	return &Database{db: db}, nil
}

func (d *Database) Vendor(vendor uint16) (string, bool) {
	v, ok := d.db.Vendors[fmt.Sprintf("%04x", vendor)]
	if !ok {
		return "", false
	}
	return v.Name, true
}

func (d *Database) product(vendor, device uint16) (*pcidb.Product, bool) {
	p, ok := d.db.Products[fmt.Sprintf("%04x%04x", vendor, device)]
	return p, ok
}

func (d *Database) Device(vendor, device uint16) (string, bool) {
	p, ok := d.product(vendor, device)
	if !ok {
		return "", false
	}
	return p.Name, true
}

func (d *Database) Subclass(baseClass, subClass uint8) (string, bool) {
	c, ok := d.db.Classes[fmt.Sprintf("%02x", baseClass)]
	if !ok {
		return "", false
	}
	id := fmt.Sprintf("%02x", subClass)
	for _, sc := range c.Subclasses {
		if sc.ID == id {
			return sc.Name, true
		}
	}
	return "", false
}

func (d *Database) Subsystem(vendor, device, subVendor, subDevice uint16) (string, bool) {
	p, ok := d.product(vendor, device)
	if !ok {
		return "", false
	}
	sv, sd := fmt.Sprintf("%04x", subVendor), fmt.Sprintf("%04x", subDevice)
	for _, s := range p.Subsystems {
		if s.VendorID == sv && s.ID == sd {
			return s.Name, true
		}
	}
	return "", false
}

// NewDatabase wraps an already parsed pcidb.PCIDB.
func NewDatabase(db *pcidb.PCIDB) *Database {
	return &Database{db: db}
}
