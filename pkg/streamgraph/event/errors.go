package event

import (
	"errors"
	"fmt"
)

// ErrBusClosed indicates Publish or Subscribe on a closed bus.
var ErrBusClosed = errors.New("bus is closed")

// ErrTooManySubscribers indicates the bus reached MaxSubscribers.
var ErrTooManySubscribers = errors.New("subscriber limit reached")

// EventError represents an error during event delivery.
type EventError struct {
	Event   Event
	Message string
	Err     error
}

// Error implements error interface.
func (e *EventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event %s (%s): %s: %v", e.Event.ID(), e.Event.Type(), e.Message, e.Err)
	}
	return fmt.Sprintf("event %s (%s): %s", e.Event.ID(), e.Event.Type(), e.Message)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Err
}
