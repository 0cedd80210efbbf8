package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := [3]string{Version, GitCommit, BuildTime}
	t.Cleanup(func() { Version, GitCommit, BuildTime = orig[0], orig[1], orig[2] })

	Version, GitCommit, BuildTime = "v1.0.0", "unknown", "unknown"
	assert.Equal(t, "buildpilot v1.0.0", String())

	GitCommit, BuildTime = "abc1234", "2026-01-01"
	assert.Equal(t, "buildpilot v1.0.0 (commit abc1234, built 2026-01-01)", String())
}
