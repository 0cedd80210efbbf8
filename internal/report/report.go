// Package report packages a build's diagnostics into a single zip archive: the log
// transcript, a stage snapshot, host facts, a rendered summary and the run's metrics.
//
// Generate may be called any number of times during a run, from any goroutine. Each call
// snapshots the current stage state and writes a new archive.
package report

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/logfields"
	"git.home.luguber.info/inful/buildpilot/internal/metrics"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/sysinfo"
)

// DefaultDir is where archives are written when no directory is configured.
const DefaultDir = "build_reports"

// Archive member names.
const (
	FileTranscript = "build.log"
	FileStages     = "stages.json"
	FileSystem     = "system_info.json"
	FileSummary    = "summary.html"
	FileMetrics    = "metrics.prom"
)

// SummarySource yields the current run state.
type SummarySource interface {
	Snapshot() orchestrator.Summary
}

// TranscriptSource is the persisted run log; *logsink.Transcript satisfies it.
type TranscriptSource interface {
	Path() string
	Sync() error
}

// Generator writes report archives.
type Generator struct {
	mu         sync.Mutex
	dir        string
	summary    SummarySource
	transcript TranscriptSource
	gatherer   prom.Gatherer
	facts      func() sysinfo.Facts
	now        func() time.Time
}

// Option customises a Generator.
type Option func(*Generator)

// WithTranscript includes the run transcript as build.log.
func WithTranscript(t TranscriptSource) Option { return func(g *Generator) { g.transcript = t } }

// WithMetrics includes the gathered metrics as metrics.prom.
func WithMetrics(gatherer prom.Gatherer) Option { return func(g *Generator) { g.gatherer = gatherer } }

// WithFacts overrides host probing.
func WithFacts(facts func() sysinfo.Facts) Option { return func(g *Generator) { g.facts = facts } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }

// New creates a generator writing into dir (DefaultDir if empty).
func New(dir string, summary SummarySource, opts ...Option) *Generator {
	if dir == "" {
		dir = DefaultDir
	}
	g := &Generator{dir: dir, summary: summary, facts: sysinfo.Collect, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// stagesDoc is the layout of stages.json.
type stagesDoc struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Success     bool          `json:"success"`
	Cancelled   bool          `json:"cancelled"`
	Stages      []stageDoc    `json:"stages"`
	Skipped     []string      `json:"skipped"`
	System      sysinfo.Facts `json:"system"`
}

type stageDoc struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           *string `json:"error"`
}

// Generate writes a new archive and returns its path.
func (g *Generator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	snap := g.summary.Snapshot()
	facts := g.facts()

	if err := os.MkdirAll(g.dir, 0o750); err != nil {
		return "", errors.ReportError("create report directory").
			WithCause(err).
			WithContext("path", g.dir).
			Build()
	}
	f, path, err := g.create(now)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(f)
	writeErr := g.writeMembers(zw, now, snap, facts)
	closeErr := zw.Close()
	fileErr := f.Close()
	if err := firstErr(writeErr, closeErr, fileErr); err != nil {
		_ = os.Remove(path)
		return "", errors.ReportError("write report archive").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	slog.Info("Error report written", logfields.RunID(snap.RunID), logfields.Path(path))
	return path, nil
}

// create opens a fresh archive file. Names carry millisecond timestamps and a numeric suffix
// on collision, so two calls never share a path.
func (g *Generator) create(now time.Time) (*os.File, string, error) {
	base := "error_report_" + now.Format("20060102_150405.000")
	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(g.dir, name+".zip")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", errors.ReportError("create report archive").WithCause(err).WithContext("path", path).Build()
		}
	}
	return nil, "", errors.ReportError("no free report file name").WithContext("base", base).Build()
}

func (g *Generator) writeMembers(zw *zip.Writer, now time.Time, snap orchestrator.Summary, facts sysinfo.Facts) error {
	if err := g.writeTranscript(zw, now); err != nil {
		return err
	}
	if err := writeJSON(zw, FileStages, now, buildStagesDoc(now, snap, facts)); err != nil {
		return err
	}
	if err := writeJSON(zw, FileSystem, now, facts); err != nil {
		return err
	}
	html, err := renderSummary(now, snap, facts)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	if err := writeBytes(zw, FileSummary, now, html); err != nil {
		return err
	}
	if g.gatherer != nil {
		w, err := create(zw, FileMetrics, now)
		if err != nil {
			return err
		}
		if err := metrics.EncodeText(w, g.gatherer); err != nil {
			return err
		}
	}
	return nil
}

// writeTranscript copies the transcript if it exists on disk.
func (g *Generator) writeTranscript(zw *zip.Writer, now time.Time) error {
	if g.transcript == nil {
		return nil
	}
	if err := g.transcript.Sync(); err != nil {
		slog.Debug("Transcript sync before report failed", logfields.Error(err))
	}
	src, err := os.Open(g.transcript.Path())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = src.Close() }()

	w, err := create(zw, FileTranscript, now)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}
	return nil
}

func buildStagesDoc(now time.Time, snap orchestrator.Summary, facts sysinfo.Facts) stagesDoc {
	doc := stagesDoc{
		RunID:       snap.RunID,
		GeneratedAt: now,
		Success:     snap.Success(),
		Cancelled:   snap.Cancelled,
		Stages:      make([]stageDoc, 0, len(snap.Stages)),
		Skipped:     make([]string, 0, len(snap.Skipped)),
		System:      facts,
	}
	for _, st := range snap.Stages {
		sd := stageDoc{
			Name:            string(st.Name),
			Description:     st.Description,
			Status:          string(st.Status),
			DurationSeconds: st.DurationSecs,
		}
		if st.ErrorMessage != "" {
			msg := st.ErrorMessage
			sd.Error = &msg
		}
		doc.Stages = append(doc.Stages, sd)
	}
	for _, name := range snap.Skipped {
		doc.Skipped = append(doc.Skipped, string(name))
	}
	return doc
}

func create(zw *zip.Writer, name string, now time.Time) (io.Writer, error) {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: now})
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", name, err)
	}
	return w, nil
}

func writeBytes(zw *zip.Writer, name string, now time.Time, data []byte) error {
	w, err := create(zw, name, now)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeJSON(zw *zip.Writer, name string, now time.Time, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return writeBytes(zw, name, now, data)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
