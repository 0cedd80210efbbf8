package metrics

import (
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// RunObserver feeds orchestrator lifecycle events into a Recorder.
type RunObserver struct {
	orchestrator.NoopObserver
	rec Recorder
}

// NewRunObserver wraps rec; a nil rec records nothing.
func NewRunObserver(rec Recorder) *RunObserver {
	if rec == nil {
		rec = NoopRecorder{}
	}
	return &RunObserver{rec: rec}
}

func (o *RunObserver) OnStageComplete(_ string, st stage.Snapshot) {
	o.rec.ObserveStageDuration(string(st.Name), st.Duration)
	o.rec.IncStageResult(string(st.Name), stageResult(st))
}

func (o *RunObserver) OnRunComplete(run orchestrator.Summary) {
	o.rec.ObserveRunDuration(run.Duration)
	switch {
	case run.Cancelled:
		o.rec.IncRunOutcome(ResultCancelled)
	case run.Success():
		o.rec.IncRunOutcome(ResultSuccess)
	default:
		o.rec.IncRunOutcome(ResultFailed)
	}
}

func stageResult(st stage.Snapshot) ResultLabel {
	switch {
	case st.Status == stage.StatusSuccess:
		return ResultSuccess
	case st.ErrorMessage == orchestrator.CancelledMessage:
		return ResultCancelled
	default:
		return ResultFailed
	}
}
