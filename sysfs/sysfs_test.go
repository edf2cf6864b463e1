package sysfs_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/foxboron/go-pciutils/pci"
	"github.com/foxboron/go-pciutils/pci/access"
	"github.com/foxboron/go-pciutils/pci/bdf"
	"github.com/foxboron/go-pciutils/pci/pcitest"
	"github.com/foxboron/go-pciutils/pci/vdc"
	"github.com/foxboron/go-pciutils/sysfs"
	"github.com/foxboron/go-pciutils/sysfs/testfs"
	"github.com/spf13/afero"
	"k8s.io/utils/ptr"
)

const (
	nicAddr    = "0000:00:03.0"
	bridgeAddr = "0000:00:1e.0"
	otherAddr  = "0001:00:00.0"
)

func testSysfs() *sysfs.Sysfs {
	return testfs.NewTestFS().
		With(testfs.Function(bridgeAddr, pcitest.Bridge(0x100))).
		With(testfs.Function(otherAddr, pcitest.Endpoint(0x100).Set16(0x02, 0x10d3))).
		With(testfs.Function(nicAddr, pcitest.Endpoint(0x100))).
		With(testfs.Driver(nicAddr, "e1000")).
		With(testfs.Entry("not-a-function")).
		Open()
}

func TestDiscover(t *testing.T) {
	entries, err := testSysfs().Discover()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Address.Canonical())
		if want := "/sys/bus/pci/devices/" + e.Address.Canonical() + "/config"; e.Accessor.Path() != want {
			t.Fatalf("accessor path %s, want %s", e.Accessor.Path(), want)
		}
	}
	want := []string{nicAddr, bridgeAddr, otherAddr}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDiscoverMissing(t *testing.T) {
	if _, err := sysfs.New(sysfs.WithFs(afero.NewMemMapFs())).Discover(); !access.IsNotFound(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestAttributes(t *testing.T) {
	s := testSysfs()
	attrs, err := s.Attributes(bdf.New(0, 0, 3, 0))
	if err != nil {
		t.Fatal(err)
	}
	want := &sysfs.Attributes{
		Vendor:          0x8086,
		Device:          0x100e,
		Class:           0x020000,
		Revision:        0x03,
		SubsystemVendor: ptr.To[uint16](0x8086),
		SubsystemDevice: ptr.To[uint16](0x001e),
	}
	if !reflect.DeepEqual(attrs, want) {
		t.Fatalf("got %+v, want %+v", attrs, want)
	}
	if !attrs.ID().Matches(vdc.Of(0x8086, 0x100e, 0x02, 0x00)) {
		t.Fatalf("unexpected id %+v", attrs.ID())
	}

	attrs, err = s.Attributes(bdf.New(0, 0, 0x1e, 0))
	if err != nil {
		t.Fatal(err)
	}
	if attrs.SubsystemVendor != nil || attrs.SubsystemDevice != nil {
		t.Fatal("bridge fixture has no subsystem attributes")
	}
	if attrs.SecondaryBus == nil || *attrs.SecondaryBus != 1 || attrs.SubordinateBus == nil || *attrs.SubordinateBus != 2 {
		t.Fatalf("bus numbers %v %v", attrs.SecondaryBus, attrs.SubordinateBus)
	}
}

func TestReadUint(t *testing.T) {
	s := testfs.NewTestFS().
		With(testfs.Function(nicAddr, pcitest.Endpoint(0x40))).
		With(testfs.Raw(nicAddr, "numa_node", "garbage")).
		Open()
	addr := bdf.New(0, 0, 3, 0)
	if _, err := s.ReadUint(addr, "numa_node", 8); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := s.ReadUint(addr, "missing", 8); !access.IsNotFound(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	v, err := s.ReadOptionalUint(addr, "missing", 8)
	if err != nil || v != nil {
		t.Fatalf("got %v, %v", v, err)
	}
	v, err = s.ReadOptionalUint(addr, "vendor", 16)
	if err != nil || v == nil || *v != 0x8086 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestDriver(t *testing.T) {
	s := testSysfs()
	if got := s.Driver(bdf.New(0, 0, 3, 0)); got != "e1000" {
		t.Fatalf("driver %q", got)
	}
	if got := s.Driver(bdf.New(0, 0, 0x1e, 0)); got != "" {
		t.Fatalf("unbound function reported driver %q", got)
	}
	if got := s.Module(bdf.New(0, 0, 3, 0)); got != "" {
		t.Fatalf("module without symlink support %q", got)
	}
}

func TestFunctions(t *testing.T) {
	functions, err := testSysfs().Functions(pci.Selector{})
	if err != nil {
		t.Fatal(err)
	}
	if len(functions) != 3 {
		t.Fatalf("expected 3 functions, got %d", len(functions))
	}
	nic := functions[0]
	if nic.Kernel.Driver != "e1000" {
		t.Fatalf("kernel %+v", nic.Kernel)
	}
	if !strings.Contains(nic.Describe(nil, 1), "\tKernel driver in use: e1000") {
		t.Fatalf("missing kernel line:\n%s", nic.Describe(nil, 1))
	}
}

func TestFunctionsSelector(t *testing.T) {
	id, err := vdc.Parse("8086:244e")
	if err != nil {
		t.Fatal(err)
	}
	functions, err := testSysfs().Functions(pci.Selector{IDs: []vdc.Filter{id}})
	if err != nil {
		t.Fatal(err)
	}
	if len(functions) != 1 || functions[0].Address.Canonical() != bridgeAddr {
		t.Fatalf("expected only the bridge, got %d functions", len(functions))
	}

	slot, err := bdf.ParseFilter("0001::")
	if err != nil {
		t.Fatal(err)
	}
	functions, err = testSysfs().Functions(pci.Selector{Slots: []bdf.Address{slot}})
	if err != nil {
		t.Fatal(err)
	}
	if len(functions) != 1 || functions[0].Address.Canonical() != otherAddr {
		t.Fatalf("expected only domain 1, got %d functions", len(functions))
	}
}

func TestFunctionsSkipsBrokenHeader(t *testing.T) {
	s := testfs.NewTestFS().
		With(testfs.Function(nicAddr, pcitest.Endpoint(0x40))).
		With(testfs.Raw(bridgeAddr, "config", "short")).
		Open()
	functions, err := s.Functions(pci.Selector{})
	if err != nil {
		t.Fatal(err)
	}
	if len(functions) != 1 || functions[0].Address.Canonical() != nicAddr {
		t.Fatalf("expected only the readable function, got %d", len(functions))
	}
}

func TestSymlinks(t *testing.T) {
	root := t.TempDir()
	dev := filepath.Join(root, "sys/bus/pci/devices", nicAddr)
	drv := filepath.Join(root, "sys/bus/pci/drivers/e1000")
	mod := filepath.Join(root, "sys/module/e1000")
	for _, dir := range []string{dev, drv, mod} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dev, "config"), pcitest.Endpoint(0x40), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("../../drivers/e1000", filepath.Join(dev, "driver")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("../../../../module/e1000", filepath.Join(drv, "module")); err != nil {
		t.Fatal(err)
	}

	s := sysfs.New(sysfs.WithRoot(root))
	functions, err := s.Functions(pci.Selector{})
	if err != nil {
		t.Fatal(err)
	}
	if len(functions) != 1 {
		t.Fatalf("expected 1 function, got %d", len(functions))
	}
	if want := (pci.Kernel{Driver: "e1000", Module: "e1000"}); functions[0].Kernel != want {
		t.Fatalf("got %+v, want %+v", functions[0].Kernel, want)
	}
}
