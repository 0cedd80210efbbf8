// Package logsink carries human-readable status lines from many producers to the console
// renderer and to the persistent build transcript.
package logsink

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is the line capacity used when New is given a non-positive value.
const DefaultCapacity = 100

// Line is one log message as seen by the renderer.
type Line struct {
	Time time.Time
	Text string
}

// Sink is a bounded multi-producer buffer of log lines with a single consumer.
// Once full, the oldest line is evicted; producers never block on the consumer.
// Every line is also appended to the attached Transcript, which never evicts.
type Sink struct {
	mu         sync.Mutex
	buf        []Line
	head       int // index of the oldest buffered line
	size       int
	dropped    uint64
	transcript *Transcript
	now        func() time.Time
}

// Option customises a Sink.
type Option func(*Sink)

// WithTranscript tees every line into t.
func WithTranscript(t *Transcript) Option { return func(s *Sink) { s.transcript = t } }

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option { return func(s *Sink) { s.now = now } }

// New creates a sink holding at most capacity undrained lines.
func New(capacity int, opts ...Option) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Sink{buf: make([]Line, capacity), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Log appends msg. Multi-line messages are split so each line keeps its own slot.
func (s *Sink) Log(msg string) {
	msg = strings.TrimRight(msg, "\r\n")
	if strings.Contains(msg, "\n") {
		for _, part := range strings.Split(msg, "\n") {
			s.push(strings.TrimRight(part, "\r"))
		}
		return
	}
	s.push(msg)
}

// Logf formats and appends a message.
func (s *Sink) Logf(format string, args ...any) {
	s.Log(fmt.Sprintf(format, args...))
}

func (s *Sink) push(text string) {
	s.mu.Lock()
	line := Line{Time: s.now(), Text: text}
	capacity := len(s.buf)
	if s.size == capacity {
		s.buf[s.head] = line
		s.head = (s.head + 1) % capacity
		s.dropped++
	} else {
		s.buf[(s.head+s.size)%capacity] = line
		s.size++
	}
	t := s.transcript
	// Writing the transcript under the lock keeps file order identical to buffer order.
	if t != nil {
		_ = t.Log(line.Time, text)
	}
	s.mu.Unlock()
}

// Drain removes and returns every buffered line, oldest first. It never blocks on producers
// beyond the short critical section.
func (s *Sink) Drain() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.size == 0 {
		return nil
	}
	out := make([]Line, s.size)
	for i := range s.size {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
		s.buf[(s.head+i)%len(s.buf)] = Line{}
	}
	s.head, s.size = 0, 0
	return out
}

// Len reports the number of undrained lines.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Dropped reports how many lines were evicted before being drained.
func (s *Sink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}
