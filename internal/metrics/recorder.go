package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess   ResultLabel = "success"
	ResultFailed    ResultLabel = "failed"
	ResultCancelled ResultLabel = "cancelled"
)

// Recorder defines observability hooks for runs, stages and commands.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome ResultLabel)
	ObserveCommandDuration(command string, d time.Duration, exitCode int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are disabled).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)        {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                  {}
func (NoopRecorder) IncRunOutcome(ResultLabel)                         {}
func (NoopRecorder) ObserveCommandDuration(string, time.Duration, int) {}
