package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("build_core", 150*time.Millisecond)
	pr.IncStageResult("build_core", ResultSuccess)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncRunOutcome(ResultSuccess)
	pr.ObserveCommandDuration("/usr/bin/cargo build --release", time.Second, 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	var buf bytes.Buffer
	require.NoError(t, EncodeText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, `buildpilot_stage_results_total{result="success",stage="build_core"} 1`)
	assert.Contains(t, out, `buildpilot_command_duration_seconds_count{exit_code="0",program="cargo"} 1`)
	assert.Contains(t, out, "buildpilot_run_outcomes_total")
}

func TestPrometheusRecorderNilReceiver(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRunOutcome(ResultFailed)
	pr.ObserveStageDuration("x", time.Second)
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRunOutcome(ResultFailed)

	path := filepath.Join(t.TempDir(), "metrics", "buildpilot.prom")
	require.NoError(t, WriteTextfile(path, reg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `buildpilot_run_outcomes_total{outcome="failed"} 1`)
}
