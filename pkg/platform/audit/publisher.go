package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher accepts audit events. Emit is best-effort for the caller's
// control flow: the orchestrator logs a publish failure but does not fail the
// business operation over it, except where a compensating path already
// failed.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Memory retains events in memory. For tests and as the default sink when no
// broker is configured.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByAction filters retained events.
func (m *Memory) ByAction(action Action) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Log writes events to the structured log. Used as a tee alongside the broker
// sink so integrity faults are always visible locally.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Emit(_ context.Context, event Event) error {
	evt := l.logger.Info()
	if event.Category == CategoryIntegrity {
		evt = l.logger.Error()
	}
	evt.
		Str("category", string(event.Category)).
		Str("action", string(event.Action)).
		Str("pseudonym", event.Pseudonym.String()).
		Str("detail", event.Detail).
		Msg("audit event")
	return nil
}

// Tee fans one event out to several sinks, returning the first error.
type Tee []Publisher

func (t Tee) Emit(ctx context.Context, event Event) error {
	var firstErr error
	for _, p := range t {
		if err := p.Emit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
