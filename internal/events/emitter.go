package events

import (
	"context"
	"log/slog"
	"sync"
)

// MemorySink is a Sink that keeps emitted events in memory. It backs tests
// and local runs without a database-backed audit log.
type MemorySink struct {
	mu     sync.RWMutex
	events []*Event
	logger *slog.Logger
}

// NewMemorySink creates a new instance of MemorySink.
func NewMemorySink(logger *slog.Logger) *MemorySink {
	return &MemorySink{
		events: make([]*Event, 0),
		logger: logger.With("component", "memory_event_sink"),
	}
}

// Emit appends the event to the in-memory log.
func (s *MemorySink) Emit(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.logger.Debug("emitted event",
		"event_id", event.ID,
		"event_type", event.Type,
		"request_id", event.RequestID)
	return nil
}

// Events returns a copy of everything emitted so far, in order.
func (s *MemorySink) Events() []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns the emitted events with the given type, in order.
func (s *MemorySink) ByType(eventType string) []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
