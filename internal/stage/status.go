package stage

import "fmt"

// Status is the lifecycle state of a single stage.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	// StatusSkipped is reserved for stages dropped at assembly time. The orchestrator never
	// assigns it.
	StatusSkipped Status = "skipped"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusSkipped
}

// Symbol returns a one-rune marker for console rendering.
func (s Status) Symbol() string {
	switch s {
	case StatusPending:
		return "·"
	case StatusRunning:
		return "»"
	case StatusSuccess:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusSkipped:
		return "-"
	default:
		return "?"
	}
}

// canTransition encodes the stage state machine.
func canTransition(from, to Status) bool {
	switch {
	case from.Terminal():
		return false
	case from == StatusPending:
		return to == StatusRunning
	case from == StatusRunning:
		return to.Terminal() && to != StatusSkipped
	default:
		return false
	}
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	Stage Name
	From  Status
	To    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("stage %s: illegal transition %s -> %s", e.Stage, e.From, e.To)
}
