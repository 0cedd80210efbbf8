package control

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultAutoStartDelay is the grace period before the start gate opens on its own.
const DefaultAutoStartDelay = time.Second

// AutoStart schedules a one-time job that opens the start gate after delay. The returned
// stop function shuts the scheduler down; it is safe to call after the job fired.
func AutoStart(state *State, log Logger, delay time.Duration) (func(), error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create auto-start scheduler: %w", err)
	}

	at := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		at = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}
	_, err = s.NewJob(
		gocron.OneTimeJob(at),
		gocron.NewTask(func() {
			if state.OpenStart() {
				log.Log("▶ No command received; starting automatically.")
			}
		}),
		gocron.WithName("auto-start"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule auto-start: %w", err)
	}
	s.Start()

	return func() {
		if err := s.Shutdown(); err != nil {
			slog.Debug("Auto-start scheduler shutdown failed", "error", err)
		}
	}, nil
}
