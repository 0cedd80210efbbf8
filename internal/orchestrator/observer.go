package orchestrator

import (
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// Observer receives run lifecycle callbacks on the orchestrator goroutine. Implementations
// must not block for long; they run between stages.
type Observer interface {
	OnRunStart(run Summary)
	OnStageStart(runID string, st stage.Snapshot)
	OnStageComplete(runID string, st stage.Snapshot)
	OnRunComplete(run Summary)
}

// NoopObserver ignores every callback.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(Summary)                     {}
func (NoopObserver) OnStageStart(string, stage.Snapshot)    {}
func (NoopObserver) OnStageComplete(string, stage.Snapshot) {}
func (NoopObserver) OnRunComplete(Summary)                  {}

// Observers fans callbacks out to each member in order.
type Observers []Observer

func (o Observers) OnRunStart(run Summary) {
	for _, obs := range o {
		obs.OnRunStart(run)
	}
}

func (o Observers) OnStageStart(runID string, st stage.Snapshot) {
	for _, obs := range o {
		obs.OnStageStart(runID, st)
	}
}

func (o Observers) OnStageComplete(runID string, st stage.Snapshot) {
	for _, obs := range o {
		obs.OnStageComplete(runID, st)
	}
}

func (o Observers) OnRunComplete(run Summary) {
	for _, obs := range o {
		obs.OnRunComplete(run)
	}
}
