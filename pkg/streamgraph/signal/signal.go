// Package signal delivers control messages to running graphs.
//
// A signal is a fire-and-forget message addressed to a graph by name. A
// supervisor enqueues signals with Dispatcher.Send; the process that owns
// the graph drains them with Dispatcher.Process or Dispatcher.Poll, which
// route each signal to the handler registered under its name.
//
// The runtime registers two handlers (see streamgraph.ControlHandlers):
//
//   - "set_parameter" with payload {"block", "name", "value"}
//   - "stop"
package signal

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a signal.
type Status string

// Signal status constants.
const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Signal is a fire-and-forget message to a running graph.
type Signal struct {
	ID string `json:"id"`

	// Name selects the handler (e.g. "set_parameter", "stop").
	Name string `json:"name"`

	// Target is the graph the signal is sent to.
	Target string `json:"target"`

	Payload map[string]any `json:"payload,omitempty"`

	Status      Status     `json:"status"`
	SentAt      time.Time  `json:"sent_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Error contains error details if processing failed.
	Error string `json:"error,omitempty"`
}

// New creates a pending signal.
func New(name, target string, payload map[string]any) *Signal {
	return &Signal{
		ID:      "sig-" + uuid.New().String()[:8],
		Name:    name,
		Target:  target,
		Payload: payload,
		Status:  StatusPending,
		SentAt:  time.Now(),
	}
}

// Clone creates a deep copy of the signal. Payload values are copied
// shallowly.
func (s *Signal) Clone() *Signal {
	c := *s
	c.Payload = maps.Clone(s.Payload)
	if s.ProcessedAt != nil {
		t := *s.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

// String returns the payload value under key, or an error naming the
// missing or mistyped key.
func (s *Signal) String(key string) (string, error) {
	v, ok := s.Payload[key]
	if !ok {
		return "", fmt.Errorf("signal %s: %w: %q", s.Name, ErrMissingField, key)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("signal %s: field %q: expected string, got %T", s.Name, key, v)
	}
	return str, nil
}

// Handler processes a signal.
type Handler func(ctx context.Context, sig *Signal) error

// Sentinel errors.
var (
	// ErrSignalNotFound is returned when a signal cannot be found.
	ErrSignalNotFound = errors.New("signal not found")

	// ErrNoHandler is returned when no handler exists for a signal.
	ErrNoHandler = errors.New("no handler for signal")

	// ErrMissingField is returned when a payload lacks a required field.
	ErrMissingField = errors.New("missing payload field")
)

// Registry manages signal handlers by signal name.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new signal registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler for a signal name.
func (r *Registry) Register(name string, handler Handler) error {
	if name == "" {
		return errors.New("signal name is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler for signal %q already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// MustRegister registers a handler, panicking on error.
func (r *Registry) MustRegister(name string, handler Handler) {
	if err := r.Register(name, handler); err != nil {
		panic(err)
	}
}

// Get returns the handler for a signal name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// List returns registered signal names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a handler for a signal name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}
