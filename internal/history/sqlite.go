package history

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed creates) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, errors.HistoryError("create history directory").
				WithCause(err).
				WithContext("path", dbPath).
				Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.HistoryError("open history database").WithCause(err).Build()
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.HistoryError("initialize history schema").WithCause(err).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		success INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		failed_stage TEXT,
		error TEXT,
		metadata TEXT
	);
	CREATE TABLE IF NOT EXISTS stage_results (
		run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores run and its stage results in one transaction.
func (s *SQLiteStore) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if run.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(run.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.HistoryError("begin transaction").WithCause(err).Build()
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stage_results WHERE run_id = ?", run.RunID); err != nil {
		return errors.HistoryError("clear stage results").WithCause(err).Build()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, started_at, finished_at, success, cancelled, failed_stage, error, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		boolToInt(run.Success), boolToInt(run.Cancelled),
		string(run.FailedStage), run.Error, metadataJSON,
	)
	if err != nil {
		return errors.HistoryError("insert run").WithCause(err).WithContext("run_id", run.RunID).Build()
	}
	for i, st := range run.Stages {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO stage_results (run_id, position, name, status, duration_ms, error) VALUES (?, ?, ?, ?, ?, ?)",
			run.RunID, i, string(st.Name), string(st.Status), st.Duration.Milliseconds(), st.Error,
		)
		if err != nil {
			return errors.HistoryError("insert stage result").WithCause(err).WithContext("stage", string(st.Name)).Build()
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.HistoryError("commit run").WithCause(err).Build()
	}
	return nil
}

const selectRuns = "SELECT run_id, started_at, finished_at, success, cancelled, failed_stage, error, metadata FROM runs"

// Get retrieves a single run with its stages.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectRuns+" WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.NotFoundError("run not found").WithContext("run_id", runID).Build()
	}
	if err != nil {
		return Run{}, err
	}
	if run.Stages, err = s.stagesFor(ctx, runID); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Recent retrieves up to limit runs ordered by start time, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC, run_id LIMIT ?", limit)
	if err != nil {
		return nil, errors.HistoryError("query runs").WithCause(err).Build()
	}
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	_ = rows.Close()

	for i := range runs {
		if runs[i].Stages, err = s.stagesFor(ctx, runs[i].RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *SQLiteStore) stagesFor(ctx context.Context, runID string) ([]StageResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, status, duration_ms, error FROM stage_results WHERE run_id = ? ORDER BY position",
		runID,
	)
	if err != nil {
		return nil, errors.HistoryError("query stage results").WithCause(err).Build()
	}
	defer rows.Close()

	var out []StageResult
	for rows.Next() {
		var (
			name, status string
			durationMS   int64
			errText      sql.NullString
		)
		if err := rows.Scan(&name, &status, &durationMS, &errText); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		out = append(out, StageResult{
			Name:     stage.Name(name),
			Status:   stage.Status(status),
			Duration: time.Duration(durationMS) * time.Millisecond,
			Error:    errText.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                   Run
		startedMS, finishedMS int64
		success, cancelled    int
		failedStage, errText  sql.NullString
		metadataJSON          []byte
	)
	if err := sc.Scan(&run.RunID, &startedMS, &finishedMS, &success, &cancelled, &failedStage, &errText, &metadataJSON); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = time.UnixMilli(startedMS)
	run.FinishedAt = time.UnixMilli(finishedMS)
	run.Success = success != 0
	run.Cancelled = cancelled != 0
	run.FailedStage = stage.Name(failedStage.String)
	run.Error = errText.String
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &run.Metadata); err != nil {
			return Run{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
