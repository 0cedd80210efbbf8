//go:build !linux && !darwin

package sysinfo

import "errors"

var errUnsupported = errors.New("not supported on this platform")

// TotalMemory is not implemented on this platform.
func TotalMemory() (uint64, error) { return 0, errUnsupported }

// FreeDisk is not implemented on this platform.
func FreeDisk(string) (uint64, error) { return 0, errUnsupported }

func platformVersion() string { return "" }
