package steps

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/sysinfo"
)

const gib = 1 << 30

var installHints = map[string]string{
	"rustc": "Install Rust from https://rustup.rs",
	"cargo": "Install Rust from https://rustup.rs",
	"node":  "Install Node.js from https://nodejs.org",
	"npm":   "Install Node.js from https://nodejs.org",
}

// CheckEnvironment verifies the required tools are on PATH and reports host resources. Low
// free disk space is a warning only.
func (b *Builder) CheckEnvironment(ctx context.Context) error {
	tools := append([]string(nil), b.cfg.Tools.Core...)
	if b.cfg.Build.GUI {
		tools = append(tools, b.cfg.Tools.GUI...)
	}

	var missing []string
	for _, tool := range tools {
		if path, ok := b.lookPath(tool); ok {
			b.logf("  ✓ %s (%s)", tool, path)
			continue
		}
		b.logf("  ✗ %s not found", tool)
		missing = append(missing, tool)
	}
	if len(missing) > 0 {
		seen := make(map[string]bool)
		for _, tool := range missing {
			if hint, ok := installHints[tool]; ok && !seen[hint] {
				seen[hint] = true
				b.logf("  → %s", hint)
			}
		}
		return errors.BuildError(fmt.Sprintf("missing required tools: %s", strings.Join(missing, ", "))).
			WithContext("tools", missing).
			Build()
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	facts := b.facts()
	b.logf("System: %s %s (%s), %d CPUs, %s memory",
		facts.Platform, facts.PlatformVersion, facts.Architecture, facts.CPUCount, facts.MemoryHuman())

	free, err := b.freeDisk(b.projectDir())
	if err != nil {
		b.logf("⚠ Could not determine free disk space: %v", err)
		return nil
	}
	b.logf("Free disk space: %s", sysinfo.Bytes(free))
	if minFree := b.cfg.Tools.MinFreeDiskGB; minFree > 0 && float64(free) < minFree*gib {
		b.logf("⚠ Low disk space: %s free, at least %.0f GB recommended", sysinfo.Bytes(free), minFree)
	}
	return nil
}
