// Package notify publishes run and stage lifecycle events to NATS so dashboards and chat
// bots can follow a build without tailing its terminal.
package notify

import "time"

// EventType names a lifecycle event. It is also the last subject token.
type EventType string

const (
	RunStarted     EventType = "run.started"
	StageStarted   EventType = "stage.started"
	StageCompleted EventType = "stage.completed"
	RunCompleted   EventType = "run.completed"
)

// Event is the JSON payload published for every lifecycle change.
type Event struct {
	Type            EventType `json:"type"`
	RunID           string    `json:"run_id"`
	Stage           string    `json:"stage,omitempty"`
	Status          string    `json:"status,omitempty"`
	Error           string    `json:"error,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Success         *bool     `json:"success,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
