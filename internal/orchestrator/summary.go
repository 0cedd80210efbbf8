package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// RunSummary is the aggregate state of one run: its stages in execution order and the
// run-level timestamps. Only the orchestrator mutates it; everybody else reads Snapshot.
type RunSummary struct {
	mu        sync.RWMutex
	id        string
	stages    []*stage.Stage
	skipped   []stage.Name
	startTime time.Time
	endTime   time.Time
	cancelled bool
	endOnce   sync.Once
	now       func() time.Time
}

func newRunSummary(id string, entries []stage.Entry, skipped []stage.Name, now func() time.Time) *RunSummary {
	if id == "" {
		id = uuid.NewString()
	}
	stages := make([]*stage.Stage, 0, len(entries))
	for _, e := range entries {
		stages = append(stages, e.Stage)
	}
	return &RunSummary{id: id, stages: stages, skipped: skipped, now: now}
}

// ID returns the run identifier.
func (r *RunSummary) ID() string { return r.id }

func (r *RunSummary) begin(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startTime.IsZero() {
		r.startTime = now
	}
}

// end stamps the end time. Later calls are no-ops.
func (r *RunSummary) end(now time.Time, cancelled bool) {
	r.endOnce.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.startTime.IsZero() {
			r.startTime = now
		}
		r.endTime = now
		r.cancelled = cancelled
	})
}

// update runs fn with the write lock held so snapshot readers never observe a
// half-applied transition.
func (r *RunSummary) update(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

// Summary is an immutable copy of a RunSummary.
type Summary struct {
	RunID     string           `json:"run_id"`
	StartTime *time.Time       `json:"start_time,omitempty"`
	EndTime   *time.Time       `json:"end_time,omitempty"`
	Duration  time.Duration    `json:"-"`
	Cancelled bool             `json:"cancelled"`
	Stages    []stage.Snapshot `json:"stages"`
	Skipped   []stage.Name     `json:"skipped"`
}

// Snapshot copies the current run state. It is safe to call from any goroutine.
func (r *RunSummary) Snapshot() Summary {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{
		RunID:     r.id,
		Cancelled: r.cancelled,
		Stages:    make([]stage.Snapshot, 0, len(r.stages)),
		Skipped:   append([]stage.Name{}, r.skipped...),
	}
	for _, st := range r.stages {
		s.Stages = append(s.Stages, st.Snapshot(now))
	}
	if !r.startTime.IsZero() {
		start := r.startTime
		s.StartTime = &start
		end := now
		if !r.endTime.IsZero() {
			end = r.endTime
			et := r.endTime
			s.EndTime = &et
		}
		s.Duration = end.Sub(start)
	}
	return s
}

// Success reports whether every stage reached SUCCESS.
func (s Summary) Success() bool {
	if s.Cancelled {
		return false
	}
	for _, st := range s.Stages {
		if st.Status != stage.StatusSuccess {
			return false
		}
	}
	return true
}

// FirstFailure returns the first FAILED stage, if any.
func (s Summary) FirstFailure() (stage.Snapshot, bool) {
	for _, st := range s.Stages {
		if st.Status == stage.StatusFailed {
			return st, true
		}
	}
	return stage.Snapshot{}, false
}

// Count returns how many stages currently have status.
func (s Summary) Count(status stage.Status) int {
	n := 0
	for _, st := range s.Stages {
		if st.Status == status {
			n++
		}
	}
	return n
}
