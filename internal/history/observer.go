package history

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/buildpilot/internal/logfields"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
)

const recordTimeout = 5 * time.Second

// Observer records each finished run in a Store. Storage failures are logged and never
// affect the run's verdict.
type Observer struct {
	orchestrator.NoopObserver
	store    Store
	metadata map[string]string
}

// NewObserver returns an observer writing to store. metadata is attached to every record
// (branch, profile and similar run parameters).
func NewObserver(store Store, metadata map[string]string) *Observer {
	return &Observer{store: store, metadata: metadata}
}

func (o *Observer) OnRunComplete(run orchestrator.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := o.store.Record(ctx, FromSummary(run, o.metadata)); err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(run.RunID), logfields.Error(err))
		return
	}
	slog.Debug("Run recorded in history", logfields.RunID(run.RunID))
}
