// Package console renders the operator-facing build output: the live Log Sink stream, the
// configuration banner and the end-of-run summary.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"git.home.luguber.info/inful/buildpilot/internal/logsink"
)

// DefaultInterval is how often the renderer drains the sink.
const DefaultInterval = 250 * time.Millisecond

const timeLayout = "15:04:05"

// Source is the consumer side of the Log Sink.
type Source interface {
	Drain() []logsink.Line
	Dropped() uint64
}

// Renderer periodically drains a Source onto a writer.
type Renderer struct {
	src      Source
	out      io.Writer
	interval time.Duration

	mu      sync.Mutex
	dropped uint64
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithInterval overrides the drain interval.
func WithInterval(d time.Duration) RendererOption { return func(r *Renderer) { r.interval = d } }

// NewRenderer creates a renderer writing src's lines to out.
func NewRenderer(src Source, out io.Writer, opts ...RendererOption) *Renderer {
	r := &Renderer{src: src, out: out, interval: DefaultInterval}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the source every interval until ctx is done, then flushes what remains.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Flush()
			return
		case <-ticker.C:
			r.Flush()
		}
	}
}

// Flush writes every buffered line now. Lines evicted from the sink since the last flush
// are reported as a single notice.
func (r *Renderer) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := r.src.Drain()
	if dropped := r.src.Dropped(); dropped > r.dropped {
		_, _ = fmt.Fprintf(r.out, "… %d earlier lines dropped (see build log)\n", dropped-r.dropped)
		r.dropped = dropped
	}
	for _, l := range lines {
		_, _ = fmt.Fprintf(r.out, "%s  %s\n", l.Time.Format(timeLayout), l.Text)
	}
}
