package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildpilot/internal/orchestrator"
	"git.home.luguber.info/inful/buildpilot/internal/stage"
)

type message struct {
	subject string
	event   Event
}

type fakePublisher struct {
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	f.msgs = append(f.msgs, message{subject: subject, event: ev})
	return nil
}

func TestNotifierPublishesLifecycle(t *testing.T) {
	pub := &fakePublisher{}
	n := New(pub, "ci.builds.")
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	n.OnRunStart(orchestrator.Summary{RunID: "r1"})
	n.OnStageStart("r1", stage.Snapshot{Name: stage.BuildCore, Status: stage.StatusRunning})
	n.OnStageComplete("r1", stage.Snapshot{Name: stage.BuildCore, Status: stage.StatusFailed, ErrorMessage: "disk full", DurationSecs: 2.5})
	n.OnRunComplete(orchestrator.Summary{
		RunID:    "r1",
		Duration: 3 * time.Second,
		Stages:   []stage.Snapshot{{Name: stage.BuildCore, Status: stage.StatusFailed, ErrorMessage: "disk full"}},
	})

	require.Len(t, pub.msgs, 4)
	assert.Equal(t, "ci.builds.run.started", pub.msgs[0].subject)
	assert.Equal(t, "ci.builds.stage.started", pub.msgs[1].subject)
	assert.Equal(t, "ci.builds.stage.completed", pub.msgs[2].subject)
	assert.Equal(t, "disk full", pub.msgs[2].event.Error)
	assert.InDelta(t, 2.5, pub.msgs[2].event.DurationSeconds, 0.001)

	done := pub.msgs[3].event
	assert.Equal(t, RunCompleted, done.Type)
	require.NotNil(t, done.Success)
	assert.False(t, *done.Success)
	assert.Equal(t, "build_core", done.Stage)
	assert.Equal(t, 2026, done.Timestamp.Year())
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection closed")}
	n := New(pub, "")

	assert.NotPanics(t, func() { n.OnRunStart(orchestrator.Summary{RunID: "r1"}) })
	assert.Equal(t, DefaultSubject+".run.started", n.Subject(RunStarted))
	assert.NoError(t, n.Close())
}

func TestConnectFailure(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}
