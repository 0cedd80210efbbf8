package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "buildpilot.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, exists := err.Context().GetString("file")
		require.True(t, exists)
		assert.Equal(t, "buildpilot.yaml", file)
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		base := ConfigError("bad value").Build()
		wrapped := fmt.Errorf("load: %w", base)

		assert.True(t, IsClassified(wrapped))
		assert.True(t, HasCategory(wrapped, CategoryConfig))
		assert.Equal(t, CategoryConfig, GetCategory(wrapped))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})

	t.Run("Cause is unwrapped", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := WrapError(cause, CategoryFileSystem, "create report directory").Build()

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "[filesystem:error] create report directory: permission denied")
	})

	t.Run("WithCause and convenience constructors", func(t *testing.T) {
		cause := errors.New("database is locked")
		err := HistoryError("record run").WithCause(cause).Build()

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CategoryHistory, err.Category())
		assert.Equal(t, SeverityWarning, NotifyError("publish").Build().Severity())
		assert.Equal(t, CategoryNotFound, NotFoundError("run").Build().Category())
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		orig := ReportError("zip failed").Build()
		next := orig.WithContext("path", "/tmp/x.zip")

		_, ok := orig.Context().Get("path")
		assert.False(t, ok)
		p, ok := next.Context().GetString("path")
		assert.True(t, ok)
		assert.Equal(t, "/tmp/x.zip", p)
	})
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", ConfigError("x").Build(), ExitConfig},
		{"validation", ValidationError("x").Build(), ExitUsage},
		{"build", BuildError("x").Build(), ExitFailure},
		{"cancelled", CancelledError("x").Build(), ExitCancelled},
		{"report", ReportError("x").Build(), ExitBuild},
		{"git", GitError("x").Build(), ExitExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out

	code := adapter.Report(WrapError(errors.New("disk full"), CategoryReport, "write archive").Build())

	assert.Equal(t, ExitBuild, code)
	assert.Equal(t, "Error: write archive (use -v for details)\n", out.String())
	assert.Contains(t, logs.String(), "category=report")
	assert.Contains(t, logs.String(), "cause=\"disk full\"")
}
