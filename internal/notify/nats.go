package notify

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/buildpilot/internal/foundation/errors"
	"git.home.luguber.info/inful/buildpilot/internal/logfields"
	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "buildpilot.events"

const flushTimeout = 2 * time.Second

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier is an orchestrator.Observer that publishes lifecycle events. Publish failures are
// logged; a broken broker never fails a build.
type Notifier struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// New wraps an existing publisher (tests, shared connections).
func New(pub Publisher, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{pub: pub, subject: strings.TrimSuffix(subject, "."), now: time.Now}
}

// Connect dials the NATS server at url and returns a notifier owning the connection.
func Connect(url, subject string) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("buildpilot"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, errors.NotifyError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	n := New(conn, subject)
	n.conn = conn
	slog.Info("NATS notifier connected", "url", conn.ConnectedUrl(), "subject", n.subject)
	return n, nil
}

// Close flushes pending events and closes an owned connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	err := n.conn.FlushTimeout(flushTimeout)
	n.conn.Close()
	if err != nil {
		return errors.NotifyError("flush NATS events").WithCause(err).Build()
	}
	return nil
}

func (n *Notifier) OnRunStart(run orchestrator.Summary) {
	n.publish(Event{Type: RunStarted, RunID: run.RunID})
}

func (n *Notifier) OnStageStart(runID string, st stage.Snapshot) {
	n.publish(Event{Type: StageStarted, RunID: runID, Stage: string(st.Name), Status: string(st.Status)})
}

func (n *Notifier) OnStageComplete(runID string, st stage.Snapshot) {
	n.publish(Event{
		Type:            StageCompleted,
		RunID:           runID,
		Stage:           string(st.Name),
		Status:          string(st.Status),
		Error:           st.ErrorMessage,
		DurationSeconds: st.DurationSecs,
	})
}

func (n *Notifier) OnRunComplete(run orchestrator.Summary) {
	ok := run.Success()
	ev := Event{Type: RunCompleted, RunID: run.RunID, Success: &ok, DurationSeconds: run.Duration.Seconds()}
	if failed, found := run.FirstFailure(); found {
		ev.Stage = string(failed.Name)
		ev.Error = failed.ErrorMessage
	}
	n.publish(ev)
}

// Subject returns the subject an event of type t is published on.
func (n *Notifier) Subject(t EventType) string {
	return n.subject + "." + string(t)
}

func (n *Notifier) publish(ev Event) {
	ev.Timestamp = n.now().UTC()
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("Failed to marshal event", "type", ev.Type, logfields.Error(err))
		return
	}
	if err := n.pub.Publish(n.Subject(ev.Type), data); err != nil {
		slog.Warn("Failed to publish event", "type", ev.Type, logfields.RunID(ev.RunID), logfields.Error(err))
		return
	}
	slog.Debug("Published event", "type", ev.Type, logfields.RunID(ev.RunID))
}
