package stage

import (
	"fmt"
	"time"
)

// Stage is one discrete, named unit of the build pipeline.
type Stage struct {
	Name         Name
	Description  string
	Status       Status
	StartTime    time.Time // zero until the stage is entered
	EndTime      time.Time // zero until the stage is exited
	ErrorMessage string
}

// New returns a pending stage.
func New(name Name, description string) *Stage {
	return &Stage{Name: name, Description: description, Status: StatusPending}
}

func (s *Stage) transition(to Status) error {
	if !canTransition(s.Status, to) {
		return &TransitionError{Stage: s.Name, From: s.Status, To: to}
	}
	s.Status = to
	return nil
}

// Begin moves the stage to RUNNING and stamps its start time.
func (s *Stage) Begin(now time.Time) error {
	if err := s.transition(StatusRunning); err != nil {
		return err
	}
	s.StartTime = now
	return nil
}

// Succeed moves a running stage to SUCCESS.
func (s *Stage) Succeed(now time.Time) error {
	if err := s.transition(StatusSuccess); err != nil {
		return err
	}
	s.EndTime = now
	return nil
}

// Fail moves a running stage to FAILED, recording msg.
func (s *Stage) Fail(now time.Time, msg string) error {
	if err := s.transition(StatusFailed); err != nil {
		return err
	}
	s.EndTime = now
	s.ErrorMessage = msg
	return nil
}

// Duration is (EndTime or now) - StartTime, or zero if the stage never started.
func (s *Stage) Duration(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.EndTime
	if end.IsZero() {
		end = now
	}
	return end.Sub(s.StartTime)
}

// Snapshot is an immutable copy of a stage for readers outside the orchestrator.
type Snapshot struct {
	Name         Name          `json:"name"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       Status        `json:"status"`
	StartTime    *time.Time    `json:"start_time,omitempty"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Duration     time.Duration `json:"-"`
	DurationSecs float64       `json:"duration_seconds"`
	ErrorMessage string        `json:"error,omitempty"`
}

// Snapshot captures the stage as of now.
func (s *Stage) Snapshot(now time.Time) Snapshot {
	d := s.Duration(now)
	snap := Snapshot{
		Name:         s.Name,
		Title:        s.Name.Title(),
		Description:  s.Description,
		Status:       s.Status,
		Duration:     d,
		DurationSecs: d.Seconds(),
		ErrorMessage: s.ErrorMessage,
	}
	if !s.StartTime.IsZero() {
		st := s.StartTime
		snap.StartTime = &st
	}
	if !s.EndTime.IsZero() {
		et := s.EndTime
		snap.EndTime = &et
	}
	return snap
}

// FormatDuration renders d as "12.3s", "4m 5s" or "1h 2m".
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%.1fs", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", int(secs)/60, int(secs)%60)
	default:
		return fmt.Sprintf("%dh %dm", int(secs)/3600, (int(secs)%3600)/60)
	}
}
