package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink receives stamped events. Implementations must be safe for
// concurrent use.
type Sink interface {
	// Write records one event.
	Write(ev Event) error
}

// Emitter stamps payloads into events and delivers them to a sink.
// Emission never fails the caller: sink errors are logged and dropped.
type Emitter struct {
	sink   Sink
	logger *slog.Logger
}

// NewEmitter creates an emitter delivering to the given sink. A nil sink
// yields an emitter that drops every event, so callers never need to
// guard emission behind a nil check.
func NewEmitter(sink Sink) *Emitter {
	return &Emitter{
		sink:   sink,
		logger: slog.Default().With("component", "events"),
	}
}

// Emit stamps the payload and hands it to the sink.
func (e *Emitter) Emit(p Payload) {
	if e == nil || e.sink == nil || p == nil {
		return
	}

	ev := Event{
		ID:      uuid.New().String(),
		Time:    time.Now().UTC(),
		Kind:    p.EventKind(),
		Payload: p,
	}

	if err := e.sink.Write(ev); err != nil {
		e.logger.Warn("event sink write failed",
			"kind", ev.Kind,
			"event_id", ev.ID,
			"error", err)
	}
}

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to the given logger. A nil logger
// uses the process default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Write logs the event at info level.
func (s *LogSink) Write(ev Event) error {
	s.logger.Info("event",
		"event_id", ev.ID,
		"category", ev.Category(),
		"kind", ev.Kind,
		"payload", ev.Payload)
	return nil
}

// MemorySink retains events in memory. Intended for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write appends the event.
func (s *MemorySink) Write(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of all recorded events in emission order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Kinds returns the kinds of all recorded events in emission order.
func (s *MemorySink) Kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

// Reset discards all recorded events.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
