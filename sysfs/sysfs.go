// Package sysfs enumerates PCI functions through the Linux sysfs PCI bus
// directory.
package sysfs

import (
	"path"
	"sort"

	"github.com/foxboron/go-pciutils/pci"
	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DevicesPath lists one directory per function, named by canonical address.
const DevicesPath = "/sys/bus/pci/devices"

// Sysfs reads PCI functions from a sysfs tree.
type Sysfs struct {
	fs   afero.Fs
	root string
	log  logr.Logger
}

type Option func(*Sysfs)

// WithFs replaces the host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Sysfs) {
		s.fs = fs
	}
}

// WithRoot makes every path relative to root, for reading a copied tree.
func WithRoot(root string) Option {
	return func(s *Sysfs) {
		s.root = root
	}
}

func WithLogger(l logr.Logger) Option {
	return func(s *Sysfs) {
		s.log = l
	}
}

func New(opts ...Option) *Sysfs {
	s := &Sysfs{
		fs:   afero.NewOsFs(),
		root: "/",
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.root != "" && s.root != "/" {
		s.fs = afero.NewBasePathFs(s.fs, s.root)
	}
	return s
}

// Path returns the path of elem inside the directory of addr.
func (s *Sysfs) Path(addr bdf.Address, elem ...string) string {
	return path.Join(append([]string{DevicesPath, addr.Canonical()}, elem...)...)
}

// Entry pairs a function with an accessor on its config file.
type Entry struct {
	Address  bdf.Address
	Accessor *access.File
}

// Discover lists every function sorted by address. Directory entries that
// are not addresses are skipped.
func (s *Sysfs) Discover() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, DevicesPath)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", DevicesPath)
	}
	var entries []Entry
	for _, info := range infos {
		addr, err := bdf.Parse(info.Name())
		if err != nil {
			s.log.V(1).Info("skipping entry", "name", info.Name(), "err", err.Error())
			continue
		}
		entries = append(entries, Entry{
			Address:  addr,
			Accessor: access.NewFile(s.fs, s.Path(addr, "config")),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bdf.Compare(entries[i].Address, entries[j].Address) < 0
	})
	return entries, nil
}

// Functions decodes every function picked by sel. The cheap sysfs ID
// attributes are consulted before the config file is opened. Functions whose
// header cannot be decoded are logged and skipped.
func (s *Sysfs) Functions(sel pci.Selector, opts ...pci.Option) ([]*pci.Function, error) {
	entries, err := s.Discover()
	if err != nil {
		return nil, err
	}
	var functions []*pci.Function
	for _, e := range entries {
		if !sel.MatchesSlot(e.Address) {
			continue
		}
		if len(sel.IDs) > 0 {
			if attrs, err := s.Attributes(e.Address); err == nil && !sel.MatchesID(attrs.ID()) {
				continue
			}
		}
		fopts := append(opts[:len(opts):len(opts)], pci.WithKernel(s.Kernel(e.Address)))
		f, err := pci.New(e.Address, e.Accessor, fopts...)
		if err != nil {
			s.log.Error(err, "skipping function", "function", e.Address.String())
			continue
		}
		if !sel.Matches(f) {
			continue
		}
		functions = append(functions, f)
	}
	return functions, nil
}
