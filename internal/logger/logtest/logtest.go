// Package logtest provides a recording slog handler for assertions in tests.
package logtest

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is a flattened log record.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// Recorder collects records. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	attrs   []slog.Attr
	parent  *Recorder
}

// New returns a Recorder and a logger writing to it at every level.
func New() (*Recorder, *slog.Logger) {
	r := &Recorder{}
	return r, slog.New(r)
}

func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: map[string]any{}}
	for _, a := range r.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.Any()
		return true
	})
	root := r.root()
	root.mu.Lock()
	root.entries = append(root.entries, e)
	root.mu.Unlock()
	return nil
}

func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Recorder{attrs: merged, parent: r.root()}
}

func (r *Recorder) WithGroup(string) slog.Handler { return r }

func (r *Recorder) root() *Recorder {
	if r.parent != nil {
		return r.parent
	}
	return r
}

// Entries returns a snapshot of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]Entry, len(root.entries))
	copy(out, root.entries)
	return out
}

// Count returns how many records were logged at level.
func (r *Recorder) Count(level slog.Level) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Messages returns the messages logged at level, in order.
func (r *Recorder) Messages(level slog.Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}
