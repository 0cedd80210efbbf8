package logsink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
)

const transcriptTimeLayout = "2006-01-02 15:04:05"

// Transcript is the append-only persistent build log: one timestamped line per message,
// flushed after each write.
type Transcript struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// TranscriptPath returns the conventional transcript location for a run started at ts.
func TranscriptPath(dir string, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("build_%s.log", ts.Format("20060102_150405")))
}

// OpenTranscript creates (or truncates) the transcript at path, creating parent directories.
func OpenTranscript(path string) (*Transcript, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create log directory").
			WithContext("path", filepath.Dir(path)).Build()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open transcript").
			WithContext("path", path).Build()
	}
	return &Transcript{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// Path returns the transcript file path.
func (t *Transcript) Path() string { return t.path }

// Log appends "[YYYY-mm-dd HH:MM:SS] msg" and flushes.
func (t *Transcript) Log(ts time.Time, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return os.ErrClosed
	}
	if _, err := fmt.Fprintf(t.w, "[%s] %s\n", ts.Format(transcriptTimeLayout), msg); err != nil {
		return err
	}
	return t.w.Flush()
}

// Sync flushes buffered data and commits it to stable storage.
func (t *Transcript) Sync() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if err := t.w.Flush(); err != nil {
		return err
	}
	return t.f.Sync()
}

// Close flushes and closes the file. Safe to call more than once.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.w.Flush(); err != nil {
		_ = t.f.Close()
		return err
	}
	return t.f.Close()
}
