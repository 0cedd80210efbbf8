package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, start time.Time) Run {
	return Run{
		RunID:       id,
		StartedAt:   start,
		FinishedAt:  start.Add(90 * time.Second),
		FailedStage: stage.RunTests,
		Error:       "cargo test exited with code 101",
		Metadata:    map[string]string{"branch": "main"},
		Stages: []StageResult{
			{Name: stage.BuildCore, Status: stage.StatusSuccess, Duration: 80 * time.Second},
			{Name: stage.RunTests, Status: stage.StatusFailed, Duration: 10 * time.Second, Error: "cargo test exited with code 101"},
			{Name: stage.Finalize, Status: stage.StatusPending},
		},
	}
}

func TestRecordAndGet(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	start := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, store.Record(ctx, sampleRun("run-1", start)))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, start.Equal(got.StartedAt))
	assert.Equal(t, 90*time.Second, got.Duration())
	assert.Equal(t, "failed", got.Outcome())
	assert.Equal(t, stage.RunTests, got.FailedStage)
	assert.Equal(t, "main", got.Metadata["branch"])
	require.Len(t, got.Stages, 3)
	assert.Equal(t, stage.StatusFailed, got.Stages[1].Status)
	assert.Equal(t, 10*time.Second, got.Stages[1].Duration)
	assert.Empty(t, got.Stages[2].Error)
}

func TestRecordReplacesSameRun(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	run := sampleRun("run-1", time.UnixMilli(1_700_000_000_000))
	require.NoError(t, store.Record(ctx, run))

	run.Success = true
	run.FailedStage = ""
	run.Error = ""
	run.Stages = run.Stages[:1]
	require.NoError(t, store.Record(ctx, run))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "success", got.Outcome())
	assert.Len(t, got.Stages, 1)
}

func TestGetMissingRun(t *testing.T) {
	_, err := newStore(t).Get(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestRecentNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	base := time.UnixMilli(1_700_000_000_000)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)
	assert.Len(t, runs[0].Stages, 3)
}

func TestFileBackedStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), sampleRun("run-1", time.UnixMilli(1_700_000_000_000))))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.Recent(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestObserverRecordsSummary(t *testing.T) {
	store := newStore(t)
	start := time.UnixMilli(1_700_000_000_000)
	end := start.Add(time.Minute)
	summary := orchestrator.Summary{
		RunID:     "run-9",
		StartTime: &start,
		EndTime:   &end,
		Cancelled: true,
		Stages: []stage.Snapshot{
			{Name: stage.EnvironmentCheck, Status: stage.StatusSuccess, Duration: time.Second},
			{Name: stage.BuildCore, Status: stage.StatusFailed, ErrorMessage: orchestrator.CancelledMessage},
		},
	}

	NewObserver(store, map[string]string{"profile": "release"}).OnRunComplete(summary)

	got, err := store.Get(t.Context(), "run-9")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Outcome())
	assert.Equal(t, stage.BuildCore, got.FailedStage)
	assert.Equal(t, orchestrator.CancelledMessage, got.Error)
	assert.Equal(t, "release", got.Metadata["profile"])
	assert.Equal(t, time.Minute, got.Duration())
}
