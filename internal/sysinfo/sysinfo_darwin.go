package sysinfo

import "golang.org/x/sys/unix"

// TotalMemory returns installed RAM in bytes.
func TotalMemory() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
