package build

import (
	"fmt"
	"io"
	"sync"
)

// Stream identifies which output pipe a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Line is one line of build output without its trailing newline.
type Line struct {
	Stream Stream `json:"stream"`
	Text   string `json:"text"`
}

// Observer receives live build output. Line is called from two goroutines
// at once, so implementations must be safe for concurrent use. Lines of one
// stream arrive in order. Finished is called exactly once per run, after
// every line.
type Observer interface {
	Line(Line)
	Finished(Outcome)
}

// StateObserver is optionally implemented by an Observer that wants state
// transitions as well.
type StateObserver interface {
	State(State)
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs struct {
	OnLine     func(Line)
	OnFinished func(Outcome)
}

func (f Funcs) Line(l Line) {
	if f.OnLine != nil {
		f.OnLine(l)
	}
}

func (f Funcs) Finished(o Outcome) {
	if f.OnFinished != nil {
		f.OnFinished(o)
	}
}

// Collector records everything it observes. It is used by tests and by
// callers that want the whole log after the fact.
type Collector struct {
	mu       sync.Mutex
	lines    []Line
	states   []State
	outcomes []Outcome
}

func (c *Collector) Line(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, l)
}

func (c *Collector) Finished(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *Collector) State(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, s)
}

// Lines returns the text of every line from stream, in arrival order.
func (c *Collector) Lines(stream Stream) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, l := range c.lines {
		if l.Stream == stream {
			out = append(out, l.Text)
		}
	}
	return out
}

// States returns the observed state transitions.
func (c *Collector) States() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.states...)
}

// Outcomes returns every finished notification received.
func (c *Collector) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

// Printer writes output lines to a terminal, stdout lines to Out and stderr
// lines to Err, each behind an optional prefix.
type Printer struct {
	Out    io.Writer
	Err    io.Writer
	Prefix string

	mu sync.Mutex
}

func (p *Printer) Line(l Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w := p.Out
	if l.Stream == Stderr {
		w = p.Err
	}
	fmt.Fprintf(w, "%s%s\n", p.Prefix, l.Text)
}

func (p *Printer) Finished(Outcome) {}

var (
	_ Observer      = Funcs{}
	_ Observer      = (*Collector)(nil)
	_ StateObserver = (*Collector)(nil)
	_ Observer      = (*Printer)(nil)
)
