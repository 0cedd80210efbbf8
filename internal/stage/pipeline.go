package stage

import "context"

// Handler performs a stage's build action. A nil return means success; any error fails the
// stage with err.Error() as its message.
type Handler func(ctx context.Context) error

// Entry binds a stage record to its handler.
type Entry struct {
	Stage   *Stage
	Handler Handler
}

// Pipeline is a fluent builder for the ordered stage list.
type Pipeline struct {
	entries []Entry
	skipped []Name
	seen    map[Name]struct{}
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{entries: make([]Entry, 0, 9), seen: make(map[Name]struct{})}
}

// Add appends a stage unconditionally. Duplicate names panic: names must be unique per run.
func (p *Pipeline) Add(name Name, description string, h Handler) *Pipeline {
	if _, dup := p.seen[name]; dup {
		panic("stage: duplicate stage name " + string(name))
	}
	p.seen[name] = struct{}{}
	p.entries = append(p.entries, Entry{Stage: New(name, description), Handler: h})
	return p
}

// AddIf appends a stage only if cond is true; otherwise the name is recorded as skipped.
func (p *Pipeline) AddIf(cond bool, name Name, description string, h Handler) *Pipeline {
	if cond {
		return p.Add(name, description, h)
	}
	p.skipped = append(p.skipped, name)
	return p
}

// Entries returns a copy of the assembled stage list in execution order.
func (p *Pipeline) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Skipped returns the names filtered out at assembly time.
func (p *Pipeline) Skipped() []Name {
	out := make([]Name, len(p.skipped))
	copy(out, p.skipped)
	return out
}
