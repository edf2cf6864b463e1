// Package dumpfile reads captured configuration spaces, either the text
// printed by lspci -x or a raw binary copy of a config file.
package dumpfile

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/foxboron/go-pciutils/pci"
	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// ErrMalformed is returned for hex dump text that cannot be parsed.
var ErrMalformed = errors.New("malformed dump")

const maxConfig = pci.ConfigExtended

// Device is one captured function.
type Device struct {
	Address bdf.Address
	Config  []byte
}

// Accessor returns a read-only accessor over the capture.
func (d *Device) Accessor() *access.Dump {
	return access.NewDump(d.Config)
}

func isBinary(b []byte) bool {
	return bytes.IndexByte(b, 0) >= 0 || !utf8.Valid(b)
}

// Parse reads every device in r. A title line starting with an address
// opens a device, the following "offset: bytes" lines fill it. Indented
// lines, as printed together with -v, are ignored. Hex lines before any
// title belong to 00:00.0, as does a binary input.
func Parse(r io.Reader) ([]Device, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isBinary(b) {
		if len(b) > maxConfig {
			b = b[:maxConfig]
		}
		return []Device{{Address: bdf.New(0, 0, 0, 0), Config: b}}, nil
	}

	var devices []Device
	var cur *Device
	scanner := bufio.NewScanner(bytes.NewReader(b))
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		first, rest, _ := strings.Cut(line, " ")
		if addr, err := bdf.Parse(first); err == nil {
			devices = append(devices, Device{Address: addr})
			cur = &devices[len(devices)-1]
			continue
		}
		if !strings.HasSuffix(first, ":") {
			return nil, errors.Wrapf(ErrMalformed, "line %d: expected an address or an offset, got %q", n, first)
		}
		if cur == nil {
			devices = append(devices, Device{Address: bdf.New(0, 0, 0, 0)})
			cur = &devices[len(devices)-1]
		}
		if err := cur.appendRow(strings.TrimSuffix(first, ":"), rest); err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

func (d *Device) appendRow(offset, row string) error {
	off, err := strconv.ParseUint(offset, 16, 16)
	if err != nil {
		return errors.Wrapf(ErrMalformed, "offset %q", offset)
	}
	if int(off) != len(d.Config) {
		return errors.Wrapf(ErrMalformed, "offset %#x does not follow %#x captured bytes", off, len(d.Config))
	}
	for _, tok := range strings.Fields(row) {
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return errors.Wrapf(ErrMalformed, "byte %q", tok)
		}
		d.Config = append(d.Config, uint8(v))
	}
	if len(d.Config) > maxConfig {
		return errors.Wrapf(ErrMalformed, "capture exceeds %#x bytes", maxConfig)
	}
	return nil
}

// Functions decodes the devices in r picked by sel. Devices whose header
// cannot be decoded are logged to log and skipped.
func Functions(r io.Reader, sel pci.Selector, log logr.Logger, opts ...pci.Option) ([]*pci.Function, error) {
	devices, err := Parse(r)
	if err != nil {
		return nil, err
	}
	var functions []*pci.Function
	for i := range devices {
		d := &devices[i]
		if !sel.MatchesSlot(d.Address) {
			continue
		}
		f, err := pci.New(d.Address, d.Accessor(), opts...)
		if err != nil {
			log.Error(err, "skipping captured function", "function", d.Address.String())
			continue
		}
		if sel.Matches(f) {
			functions = append(functions, f)
		}
	}
	return functions, nil
}
