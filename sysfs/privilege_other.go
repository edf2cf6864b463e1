//go:build !linux

package sysfs

import "os"

// Stub implementation for platforms without sysfs
func Privileged() bool {
	return os.Geteuid() == 0
}
