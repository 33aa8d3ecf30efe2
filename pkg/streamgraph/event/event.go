package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the runtime.
const (
	TypeGraphStarted     = "graph.started"
	TypeGraphStopped     = "graph.stopped"
	TypeGraphFailed      = "graph.failed"
	TypeBlockError       = "block.error"
	TypeParameterChanged = "block.parameter_changed"
)

// Event is an immutable notification.
type Event interface {
	ID() string
	Type() string
	// Source is the name of the graph that emitted the event.
	Source() string
	// CorrelationID groups related events; the runtime uses the run ID.
	CorrelationID() string
	Timestamp() time.Time
	Data() any
	DataBytes() []byte
}

// Metadata contains common event metadata fields.
type Metadata struct {
	EventID       string    `json:"id"`
	EventType     string    `json:"type"`
	EventSource   string    `json:"source"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// BaseEvent provides a generic event implementation.
// T is the payload type for type-safe access.
type BaseEvent[T any] struct {
	Meta    Metadata `json:"metadata"`
	Payload T        `json:"payload"`
}

func (e *BaseEvent[T]) ID() string            { return e.Meta.EventID }
func (e *BaseEvent[T]) Type() string          { return e.Meta.EventType }
func (e *BaseEvent[T]) Source() string        { return e.Meta.EventSource }
func (e *BaseEvent[T]) CorrelationID() string { return e.Meta.CorrelationID }
func (e *BaseEvent[T]) Timestamp() time.Time  { return e.Meta.Timestamp }
func (e *BaseEvent[T]) Data() any             { return e.Payload }

// TypedData returns the strongly-typed payload.
func (e *BaseEvent[T]) TypedData() T {
	return e.Payload
}

// DataBytes returns the JSON encoding of the payload, or nil if it cannot
// be encoded.
func (e *BaseEvent[T]) DataBytes() []byte {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return nil
	}
	return b
}

// EventOption configures event creation.
type EventOption func(*Metadata)

// WithEventID sets a specific event ID (default: auto-generated UUID).
func WithEventID(id string) EventOption {
	return func(m *Metadata) {
		m.EventID = id
	}
}

// WithCorrelationID sets the correlation ID.
func WithCorrelationID(id string) EventOption {
	return func(m *Metadata) {
		m.CorrelationID = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) EventOption {
	return func(m *Metadata) {
		m.Timestamp = t
	}
}

// New creates a new event with the given type, source, and payload.
// Without WithCorrelationID the event ID is used as correlation ID.
func New[T any](eventType, source string, payload T, opts ...EventOption) *BaseEvent[T] {
	meta := Metadata{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		EventSource: source,
		Timestamp:   time.Now(),
	}
	for _, opt := range opts {
		opt(&meta)
	}
	if meta.CorrelationID == "" {
		meta.CorrelationID = meta.EventID
	}
	return &BaseEvent[T]{Meta: meta, Payload: payload}
}

// RunPayload is the payload of graph.started, graph.stopped and graph.failed.
type RunPayload struct {
	RunID  string `json:"run_id"`
	Blocks int    `json:"blocks"`
	// DurationMs is zero for graph.started.
	DurationMs float64 `json:"duration_ms,omitempty"`
	// Error is set for graph.failed.
	Error string `json:"error,omitempty"`
	// Block names the failing block for graph.failed.
	Block string `json:"block,omitempty"`
}

// BlockErrorPayload is the payload of block.error.
type BlockErrorPayload struct {
	Block string `json:"block"`
	Error string `json:"error"`
	Fatal bool   `json:"fatal"`
}

// ParameterPayload is the payload of block.parameter_changed.
type ParameterPayload struct {
	Block string `json:"block"`
	Name  string `json:"name"`
	Value any    `json:"value"`
	// Error is set when the block rejected the value.
	Error string `json:"error,omitempty"`
}

// Handler processes delivered events.
type Handler interface {
	Handle(ctx context.Context, evt Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}
