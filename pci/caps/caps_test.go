package caps

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/field"
	"github.com/foxboron/go-pciutils/pci/header"
	"github.com/foxboron/go-pciutils/pci/pcitest"
	"github.com/go-logr/logr/funcr"
)

func scan(t *testing.T, cfg pcitest.Config, opts ...Option) ([]Capability, error) {
	t.Helper()
	h, err := header.Parse(cfg[:header.Size])
	if err != nil {
		t.Fatal(err)
	}
	return NewWalker(access.NewDump(cfg), opts...).Scan(h)
}

func offsets(caps []Capability) []uint64 {
	var offs []uint64
	for _, c := range caps {
		offs = append(offs, c.Offset())
	}
	return offs
}

func TestCyclicTraditionalChain(t *testing.T) {
	cfg := pcitest.Endpoint(0x100).
		WithCapabilities(0x40).
		Capability(0x40, PowerManagementID, 0x50).
		Capability(0x50, MSIID, 0x40)
	caps, err := scan(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint64{0x40, 0x50}; !reflect.DeepEqual(offsets(caps), want) {
		t.Fatalf("visited %#x, want %#x", offsets(caps), want)
	}
	if _, ok := caps[0].(*PowerManagement); !ok {
		t.Fatalf("expected power management record, got %T", caps[0])
	}
	if g, ok := caps[1].(*Generic); !ok || g.ID() != uint16(MSIID) {
		t.Fatalf("expected generic MSI record, got %#v", caps[1])
	}
}

func TestSelfLoop(t *testing.T) {
	cfg := pcitest.Endpoint(0x100).
		WithCapabilities(0x40).
		Capability(0x40, MSIID, 0x40)
	caps, err := scan(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 1 {
		t.Fatalf("expected one capability, got %d", len(caps))
	}
}

func TestEveryOffsetCyclic(t *testing.T) {
	// Every node points at the next byte, wrapping back to 0x40.
	cfg := pcitest.Endpoint(0x100).WithCapabilities(0x40)
	for off := 0x40; off < 0x100; off += 2 {
		next := off + 2
		if next == 0x100 {
			next = 0x40
		}
		cfg.Capability(uint8(off), MSIID, uint8(next))
	}
	caps, err := scan(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != (0x100-0x40)/2 {
		t.Fatalf("expected %d capabilities, got %d", (0x100-0x40)/2, len(caps))
	}
}

func TestNoCapabilities(t *testing.T) {
	caps, err := scan(t, pcitest.Endpoint(0x100))
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 0 {
		t.Fatalf("expected no capabilities, got %d", len(caps))
	}
}

func TestTraditionalErrorFailsScan(t *testing.T) {
	cfg := pcitest.Endpoint(0x40).WithCapabilities(0x40)
	_, err := scan(t, cfg)
	if !errors.Is(err, field.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestExtendedChain(t *testing.T) {
	cfg := pcitest.Endpoint(0x1000).
		WithCapabilities(0x40).
		Capability(0x40, PCIExpressID, 0).
		ExtendedCapability(0x100, 0x0001, 2, 0x148).
		ExtendedCapability(0x148, 0x000e, 1, 0x100)
	caps, err := scan(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint64{0x40, 0x100, 0x148}; !reflect.DeepEqual(offsets(caps), want) {
		t.Fatalf("visited %#x, want %#x", offsets(caps), want)
	}
	ext, ok := caps[1].(*GenericExtended)
	if !ok {
		t.Fatalf("expected extended record, got %T", caps[1])
	}
	if ext.ID() != 0x0001 || ext.Version != 2 || !ext.Extended() {
		t.Fatalf("unexpected extended record %#v", ext)
	}
	if got := caps[2].Render(0); got != "Capability 0xe at 0x148" {
		t.Fatalf("render: %q", got)
	}
}

func TestExtendedRequiresCapabilityList(t *testing.T) {
	cfg := pcitest.Endpoint(0x1000).ExtendedCapability(0x100, 0x0001, 1, 0)
	caps, err := scan(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 0 {
		t.Fatalf("extended list walked without the capability list bit: %d", len(caps))
	}
}

func TestExtendedEmptyHeader(t *testing.T) {
	for _, hdr := range []uint32{0, 0xffffffff} {
		cfg := pcitest.Endpoint(0x1000).
			WithCapabilities(0x40).
			Capability(0x40, PCIExpressID, 0).
			Set32(0x100, hdr)
		caps, err := scan(t, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if len(caps) != 1 {
			t.Fatalf("header %#x: expected only the traditional capability, got %d", hdr, len(caps))
		}
	}
}

func TestExtendedErrorIsSwallowed(t *testing.T) {
	var logged []string
	log := funcr.New(func(prefix, args string) {
		logged = append(logged, args)
	}, funcr.Options{Verbosity: 1})

	// The second node points past the end of a legacy sized capture.
	cfg := pcitest.Endpoint(0x180).
		WithCapabilities(0x40).
		Capability(0x40, PCIExpressID, 0).
		ExtendedCapability(0x100, 0x0001, 1, 0x200)
	caps, err := scan(t, cfg, WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint64{0x40}; !reflect.DeepEqual(offsets(caps), want) {
		t.Fatalf("got %#x, want %#x", offsets(caps), want)
	}
	if len(logged) != 1 || !strings.Contains(logged[0], "ignoring extended capabilities") {
		t.Fatalf("expected one log line, got %q", logged)
	}

	// A legacy capture has nothing at all past 0x100.
	caps, err = scan(t, pcitest.Endpoint(0x100).WithCapabilities(0x40).Capability(0x40, PCIExpressID, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(caps) != 1 {
		t.Fatalf("expected one capability, got %d", len(caps))
	}
}

func TestPowerManagement(t *testing.T) {
	cfg := pcitest.Endpoint(0x100).
		WithCapabilities(0xc8).
		Capability(0xc8, PowerManagementID, 0).
		Set16(0xca, 0b11001_1_0_010_1_0_1_011)
	caps, err := scan(t, cfg)
	if err != nil {
		t.Fatal(err)
	}
	pm, ok := caps[0].(*PowerManagement)
	if !ok {
		t.Fatalf("expected power management record, got %T", caps[0])
	}
	want := &PowerManagement{
		Version:            3,
		PMEClock:           true,
		ImmediateReadiness: false,
		DSI:                true,
		AuxCurrent:         2,
		D1:                 false,
		D2:                 true,
		PMESupport:         PMED0 | PMED3Hot | PMED3Cold,
		offset:             0xc8,
	}
	if !reflect.DeepEqual(pm, want) {
		t.Fatalf("got %+v, want %+v", pm, want)
	}
	if pm.Offset() != 0xc8 || pm.ID() != 0x01 {
		t.Fatalf("offset %#x id %#x", pm.Offset(), pm.ID())
	}
	if got := pm.Render(1); got != "Power Management version 3" {
		t.Fatalf("render(1): %q", got)
	}
	wantFlags := "Power Management version 3\n\t\tFlags: PMEClk+ DSI+ D1- D2+ AuxCurrent=100mA PME(D0+,D1-,D2-,D3hot+,D3cold+)"
	if got := pm.Render(2); got != wantFlags {
		t.Fatalf("render(2):\n%q\nwant\n%q", got, wantFlags)
	}
}

func TestAuxCurrent(t *testing.T) {
	for raw, want := range []int{0, 55, 100, 160, 220, 270, 320, 375} {
		pm := ParsePowerManagement(0x40, uint16(raw)<<6)
		if got := pm.AuxCurrentMilliamps(); got != want {
			t.Fatalf("aux current %d: got %dmA, want %dmA", raw, got, want)
		}
	}
}

func TestPowerManagementTruncated(t *testing.T) {
	cfg := pcitest.Endpoint(0x42).
		WithCapabilities(0x40).
		Capability(0x40, PowerManagementID, 0)
	if _, err := scan(t, cfg); !errors.Is(err, field.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}
