package caps

import (
	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/field"
	"github.com/foxboron/go-pciutils/pci/header"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// ExtendedStart is the fixed offset of the first extended capability.
const ExtendedStart = 0x100

const (
	extendedNextShift   = 4
	extendedVersionMask = 0xf
)

// Walker scans the capability lists of one function.
type Walker struct {
	a   access.Accessor
	log logr.Logger
}

type Option func(*Walker)

// WithLogger sets the logger used to report a dropped extended list.
func WithLogger(l logr.Logger) Option {
	return func(w *Walker) {
		w.log = l
	}
}

func NewWalker(a access.Accessor, opts ...Option) *Walker {
	w := &Walker{a: a, log: logr.Discard()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Scan returns the traditional list followed by the extended list. Errors in
// the traditional list fail the scan. The extended list is only walked when
// the header advertises a capability list, and any error in it drops the
// extended part of the result.
func (w *Walker) Scan(h header.Header) ([]Capability, error) {
	c := h.Base()
	caps, err := w.Traditional(c.CapabilityPointer)
	if err != nil {
		return nil, err
	}
	if !c.HasCapabilityList() {
		return caps, nil
	}
	ext, err := w.Extended()
	if err != nil {
		w.log.V(1).Info("ignoring extended capabilities", "err", err.Error())
		return caps, nil
	}
	return append(caps, ext...), nil
}

// Traditional walks the list anchored at start. Every offset is visited at
// most once and offset 0 terminates the list.
func (w *Walker) Traditional(start uint8) ([]Capability, error) {
	var caps []Capability
	seen := map[uint8]bool{0: true}
	for off := start; !seen[off]; {
		seen[off] = true
		b, err := w.a.Read(uint64(off), 2)
		if err != nil {
			return nil, errors.Wrapf(err, "capability at %#x", off)
		}
		id, err := field.Le8(b, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "capability id at %#x", off)
		}
		next, err := field.Le8(b, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "capability next pointer at %#x", off)
		}
		decode, ok := decoders[id]
		if !ok {
			decode = decodeGeneric(id)
		}
		c, err := decode(w.a, off)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
		off = next
	}
	return caps, nil
}

func decodeGeneric(id uint8) decoder {
	return func(_ access.Accessor, offset uint8) (Capability, error) {
		return &Generic{CapID: id, offset: offset}, nil
	}
}

// Extended walks the list anchored at ExtendedStart with the same cycle guard
// as Traditional. A header of all zeros or all ones at ExtendedStart means the
// function has no extended capabilities.
func (w *Walker) Extended() ([]Capability, error) {
	var caps []Capability
	seen := map[uint16]bool{0: true}
	for off := uint16(ExtendedStart); !seen[off]; {
		seen[off] = true
		b, err := w.a.Read(uint64(off), 4)
		if err != nil {
			return nil, errors.Wrapf(err, "extended capability at %#x", off)
		}
		hdr, err := field.Le32(b, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "extended capability at %#x", off)
		}
		// Conventional functions read zeros here and aborted reads ones. lspci
		// treats both as an empty list.
		if off == ExtendedStart && (hdr == 0 || hdr == 0xffffffff) {
			return nil, nil
		}
		id, link := uint16(hdr), uint16(hdr>>16)
		caps = append(caps, &GenericExtended{
			CapID:   id,
			Version: uint8(link & extendedVersionMask),
			offset:  off,
		})
		off = link >> extendedNextShift
	}
	return caps, nil
}
