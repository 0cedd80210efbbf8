package sysinfo

import "golang.org/x/sys/unix"

// TotalMemory returns installed RAM in bytes.
func TotalMemory() (uint64, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, err
	}
	return uint64(si.Totalram) * uint64(si.Unit), nil
}
