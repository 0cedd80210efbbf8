// Package history persists a record of every build run so operators can compare runs and
// find the first failing stage of past builds.
package history

import (
	"context"
	"time"

	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// Run is the persisted outcome of one build run.
type Run struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Success     bool
	Cancelled   bool
	FailedStage stage.Name
	Error       string
	Stages      []StageResult
	Metadata    map[string]string
}

// Duration is FinishedAt - StartedAt.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Outcome renders the verdict as a single word.
func (r Run) Outcome() string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.Success:
		return "success"
	default:
		return "failed"
	}
}

// StageResult is one stage of a persisted run.
type StageResult struct {
	Name     stage.Name
	Status   stage.Status
	Duration time.Duration
	Error    string
}

// Store persists and queries run records.
type Store interface {
	// Record stores a finished run. Recording the same run ID twice replaces the first record.
	Record(ctx context.Context, run Run) error

	// Get returns the run with id, or a not_found classified error.
	Get(ctx context.Context, runID string) (Run, error)

	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)

	// Close releases the store.
	Close() error
}

// FromSummary converts an orchestrator summary into a Run.
func FromSummary(s orchestrator.Summary, metadata map[string]string) Run {
	run := Run{
		RunID:     s.RunID,
		Success:   s.Success(),
		Cancelled: s.Cancelled,
		Metadata:  metadata,
		Stages:    make([]StageResult, 0, len(s.Stages)),
	}
	if s.StartTime != nil {
		run.StartedAt = *s.StartTime
	}
	if s.EndTime != nil {
		run.FinishedAt = *s.EndTime
	} else {
		run.FinishedAt = run.StartedAt.Add(s.Duration)
	}
	for _, st := range s.Stages {
		run.Stages = append(run.Stages, StageResult{
			Name:     st.Name,
			Status:   st.Status,
			Duration: st.Duration,
			Error:    st.ErrorMessage,
		})
	}
	if failed, ok := s.FirstFailure(); ok {
		run.FailedStage = failed.Name
		run.Error = failed.ErrorMessage
	}
	return run
}
