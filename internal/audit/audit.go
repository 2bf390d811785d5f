// Package audit keeps a bounded in-memory trail of seal and unseal
// operations, optionally mirrored to an external writer as JSON.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeSeal represents an encryption operation.
	EventTypeSeal EventType = "seal"
	// EventTypeUnseal represents a decryption operation.
	EventTypeUnseal EventType = "unseal"
	// EventTypeDerive represents a key or fingerprint derivation.
	EventTypeDerive EventType = "derive"
)

// Event represents a single audit log event. It never carries the password,
// the derived key, or any plaintext.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	EventType EventType     `json:"event_type"`
	Package   string        `json:"package,omitempty"`
	Provider  string        `json:"provider,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log records an audit event.
	Log(event *Event) error

	// Record builds and records an event for a finished operation.
	Record(eventType EventType, pkg, provider string, err error, duration time.Duration)

	// Events returns a copy of the retained events.
	Events() []*Event
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu        sync.Mutex
	events    []*Event
	maxEvents int
	writer    EventWriter
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *Event) error
}

// NewLogger creates a new audit logger. A nil writer keeps events in memory
// only.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return &auditLogger{
		events:    make([]*Event, 0, maxEvents),
		maxEvents: maxEvents,
		writer:    writer,
	}
}

// Log records an audit event.
func (l *auditLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		if err := l.writer.WriteEvent(event); err != nil {
			return fmt.Errorf("failed to write audit event: %w", err)
		}
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Record builds and records an event for a finished operation.
func (l *auditLogger) Record(eventType EventType, pkg, provider string, err error, duration time.Duration) {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Package:   pkg,
		Provider:  provider,
		Success:   err == nil,
		Duration:  duration,
	}
	if err != nil {
		event.Error = err.Error()
	}

	l.Log(event)
}

// Events returns a copy of the retained events.
func (l *auditLogger) Events() []*Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*Event, len(l.events))
	copy(events, l.events)
	return events
}

// JSONWriter writes events as JSON lines to an io.Writer.
type JSONWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONWriter creates a JSON lines event writer.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (w *JSONWriter) WriteEvent(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
