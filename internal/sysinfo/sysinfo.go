// Package sysinfo gathers the host facts recorded in error reports and checked by the
// environment stage.
package sysinfo

import (
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Facts describes the machine a build ran on.
type Facts struct {
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	Architecture    string `json:"architecture"`
	GoVersion       string `json:"go_version"`
	CPUCount        int    `json:"cpu_count"`
	MemoryTotal     uint64 `json:"memory_total"`
	Hostname        string `json:"hostname"`
}

// Collect probes the current host. Probes that fail leave their field zero.
func Collect() Facts {
	host, _ := os.Hostname()
	mem, _ := TotalMemory()
	return Facts{
		Platform:        runtime.GOOS,
		PlatformVersion: platformVersion(),
		Architecture:    runtime.GOARCH,
		GoVersion:       runtime.Version(),
		CPUCount:        runtime.NumCPU(),
		MemoryTotal:     mem,
		Hostname:        host,
	}
}

// MemoryHuman renders MemoryTotal as "16 GiB", or "unknown" when the probe failed.
func (f Facts) MemoryHuman() string {
	if f.MemoryTotal == 0 {
		return "unknown"
	}
	return humanize.IBytes(f.MemoryTotal)
}

// Bytes renders n as a human-readable IEC size.
func Bytes(n uint64) string { return humanize.IBytes(n) }
