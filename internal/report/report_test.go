package report

import (
	"archive/zip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildpilot/internal/control"
	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/logsink"
	"git.home.luguber.info/inful/buildpilot/internal/metrics"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
	"git.home.luguber.info/inful/buildpilot/internal/sysinfo"
)

func fixedFacts() sysinfo.Facts {
	return sysinfo.Facts{Platform: "linux", Architecture: "amd64", GoVersion: "go1.24", CPUCount: 8, MemoryTotal: 16 << 30, Hostname: "builder"}
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()

	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		out[f.Name] = data
	}
	return out
}

func TestGenerateTwiceProducesDistinctArchives(t *testing.T) {
	dir := t.TempDir()
	transcript, err := logsink.OpenTranscript(filepath.Join(dir, "logs", "build.log"))
	require.NoError(t, err)
	defer func() { _ = transcript.Close() }()
	sink := logsink.New(10, logsink.WithTranscript(transcript))

	state := control.NewState()
	state.OpenStart()
	release := make(chan struct{})
	entered := make(chan struct{})
	p := stage.NewPipeline().
		Add(stage.BuildCore, "Compile the core", func(context.Context) error { return nil }).
		Add(stage.RunTests, "Run tests", func(context.Context) error {
			close(entered)
			<-release
			return errors.BuildError("disk full").Build()
		}).
		AddIf(false, stage.BuildFrontend, "Build GUI", nil)
	orch := orchestrator.New(state, sink, p, orchestrator.WithRunID("run-42"))

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncRunOutcome(metrics.ResultFailed)

	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	gen := New(filepath.Join(dir, "reports"), orch.Summary(),
		WithTranscript(transcript),
		WithMetrics(reg),
		WithFacts(fixedFacts),
		WithClock(func() time.Time { return fixed }))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Run(t.Context())
	}()

	<-entered
	first, err := gen.Generate()
	require.NoError(t, err)
	close(release)
	wg.Wait()

	second, err := gen.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "error_report_20260304_050607.000.zip", filepath.Base(first))
	assert.Equal(t, "error_report_20260304_050607.000_1.zip", filepath.Base(second))

	for _, path := range []string{first, second} {
		files := readArchive(t, path)
		for _, name := range []string{FileTranscript, FileStages, FileSystem, FileSummary, FileMetrics} {
			assert.Contains(t, files, name, "%s missing from %s", name, path)
		}
		assert.Contains(t, string(files[FileTranscript]), "Build Core completed")
		assert.Contains(t, string(files[FileMetrics]), "buildpilot_run_outcomes_total")

		var sys sysinfo.Facts
		require.NoError(t, json.Unmarshal(files[FileSystem], &sys))
		assert.Equal(t, "builder", sys.Hostname)
	}

	var mid, final stagesDoc
	require.NoError(t, json.Unmarshal(readArchive(t, first)[FileStages], &mid))
	require.NoError(t, json.Unmarshal(readArchive(t, second)[FileStages], &final))

	assert.Equal(t, "run-42", mid.RunID)
	assert.Equal(t, []string{"build_frontend"}, mid.Skipped)
	require.Len(t, mid.Stages, 2)
	assert.Equal(t, "running", mid.Stages[1].Status)
	assert.Nil(t, mid.Stages[1].Error)

	assert.Equal(t, "failed", final.Stages[1].Status)
	require.NotNil(t, final.Stages[1].Error)
	assert.Equal(t, "disk full", *final.Stages[1].Error)
	assert.False(t, final.Success)

	summary := string(readArchive(t, second)[FileSummary])
	assert.Contains(t, summary, "<table>")
	assert.Contains(t, summary, "disk full")
	assert.Contains(t, summary, "First failure")
}

func TestGenerateWithoutTranscriptOrMetrics(t *testing.T) {
	dir := t.TempDir()
	orch := orchestrator.New(control.NewState(), logsink.New(0), stage.NewPipeline().Add("a", "", nil))
	gen := New(dir, orch.Summary(), WithFacts(fixedFacts))

	path, err := gen.Generate()
	require.NoError(t, err)

	files := readArchive(t, path)
	assert.NotContains(t, files, FileTranscript)
	assert.NotContains(t, files, FileMetrics)
	assert.Contains(t, files, FileStages)
	assert.Contains(t, string(files[FileSummary]), "in progress")
}

func TestGenerateReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o600))

	orch := orchestrator.New(control.NewState(), logsink.New(0), stage.NewPipeline())
	_, err := New(blocker, orch.Summary(), WithFacts(fixedFacts)).Generate()

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryReport))
}

func TestSummaryMarkdownEscapesCells(t *testing.T) {
	snap := orchestrator.Summary{
		RunID: "r",
		Stages: []stage.Snapshot{{
			Name: stage.BuildCore, Title: "Build Core", Status: stage.StatusFailed,
			ErrorMessage: "a|b <script>",
		}},
	}
	out := SummaryMarkdown(time.Now(), snap, fixedFacts())
	assert.Contains(t, out, `a\|b &lt;script&gt;`)
	assert.True(t, strings.HasPrefix(out, "# Build report"))
}
