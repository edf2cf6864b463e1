package testfs

import (
	"encoding/binary"
	"fmt"
	"path"
	"testing/fstest"

	"github.com/foxboron/go-pciutils/sysfs"
)

func attr(format string, v ...any) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(fmt.Sprintf(format+"\n", v...))}
}

// Function returns the directory of the function at addr, its config file
// holding config and the ID attributes the kernel derives from it.
func Function(addr string, config []byte) fstest.MapFS {
	dir := path.Join(sysfs.DevicesPath, addr)
	le16 := func(off int) uint16 { return binary.LittleEndian.Uint16(config[off:]) }
	files := fstest.MapFS{
		dir + "/config":   {Data: config},
		dir + "/vendor":   attr("0x%04x", le16(0x00)),
		dir + "/device":   attr("0x%04x", le16(0x02)),
		dir + "/revision": attr("0x%02x", config[0x08]),
		dir + "/class":    attr("0x%02x%02x%02x", config[0x0b], config[0x0a], config[0x09]),
	}
	if config[0x0e]&0x7f == 0 {
		files[dir+"/subsystem_vendor"] = attr("0x%04x", le16(0x2c))
		files[dir+"/subsystem_device"] = attr("0x%04x", le16(0x2e))
	} else {
		files[dir+"/secondary_bus_number"] = attr("%d", config[0x19])
		files[dir+"/subordinate_bus_number"] = attr("%d", config[0x1a])
	}
	return files
}

// Driver binds driver to the function at addr through its uevent file.
func Driver(addr, driver string) fstest.MapFS {
	dir := path.Join(sysfs.DevicesPath, addr)
	return fstest.MapFS{
		dir + "/uevent": attr("DRIVER=%s\nPCI_SLOT_NAME=%s", driver, addr),
	}
}

// Entry creates a directory entry that is not a function address.
func Entry(name string) fstest.MapFS {
	return fstest.MapFS{
		path.Join(sysfs.DevicesPath, name) + "/uevent": attr(""),
	}
}

// Raw writes content verbatim to the attribute name of the function at addr.
func Raw(addr, name, content string) fstest.MapFS {
	return fstest.MapFS{
		path.Join(sysfs.DevicesPath, addr, name): {Data: []byte(content)},
	}
}
