package streamgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph construction and validation.
var (
	// ErrTypeMismatch indicates Connect joined ports with different element types.
	ErrTypeMismatch = errors.New("port element types differ")

	// ErrPortOccupied indicates an input port already has a producer.
	ErrPortOccupied = errors.New("input port already connected")

	// ErrCycle indicates an edge would create a dependency cycle.
	ErrCycle = errors.New("edge creates a cycle")

	// ErrDanglingPort indicates a required port was left unconnected.
	ErrDanglingPort = errors.New("required port not connected")

	// ErrInvalidCapacity indicates an edge capacity that is not positive.
	ErrInvalidCapacity = errors.New("edge capacity must be positive")

	// ErrBlockNotFound indicates a port or call references an unknown block.
	ErrBlockNotFound = errors.New("block not found")

	// ErrPortNotFound indicates a port index the block does not declare.
	ErrPortNotFound = errors.New("port not found")

	// ErrGraphFrozen indicates the builder was modified after Compile.
	ErrGraphFrozen = errors.New("graph already compiled")

	// ErrEmptyGraph indicates Compile was called on a graph without blocks.
	ErrEmptyGraph = errors.New("graph has no blocks")
)

// Sentinel errors for the block lifecycle.
var (
	// ErrInvalidParameter indicates an unknown parameter or an out-of-domain value.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnknownParameter is the reason used when a block has no parameter by that name.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidState indicates a lifecycle call in the wrong state.
	ErrInvalidState = errors.New("invalid state")

	// ErrNilContext indicates Start or Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// TypeMismatchError reports the two ports Connect refused to join.
type TypeMismatchError struct {
	From Port
	To   Port
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("connect %s (%s) -> %s (%s): %v", e.From, e.From.Type, e.To, e.To.Type, ErrTypeMismatch)
}

// Unwrap returns ErrTypeMismatch for errors.Is support.
func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// PortOccupiedError reports an input port that already has a producer.
type PortOccupiedError struct {
	Port     Port
	Producer Port
}

// Error implements the error interface.
func (e *PortOccupiedError) Error() string {
	return fmt.Sprintf("port %s: %v by %s", e.Port, ErrPortOccupied, e.Producer)
}

// Unwrap returns ErrPortOccupied for errors.Is support.
func (e *PortOccupiedError) Unwrap() error {
	return ErrPortOccupied
}

// CycleError reports an edge that would close a dependency cycle.
// Path lists the blocks of the cycle, starting and ending at From.
type CycleError struct {
	From string
	To   string
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("connect %s -> %s: %v: %s", e.From, e.To, ErrCycle, strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCycle for errors.Is support.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// DanglingPortError reports a required port with no edge.
type DanglingPortError struct {
	Port Port
}

// Error implements the error interface.
func (e *DanglingPortError) Error() string {
	return fmt.Sprintf("port %s: %v", e.Port, ErrDanglingPort)
}

// Unwrap returns ErrDanglingPort for errors.Is support.
func (e *DanglingPortError) Unwrap() error {
	return ErrDanglingPort
}

// InvalidParameterError reports a rejected SetParameter call.
// The block keeps its previous value.
type InvalidParameterError struct {
	Block string
	Name  string
	Value any
	// Reason is the underlying validation failure, if any.
	Reason error
}

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	msg := fmt.Sprintf("block %s: %v %q=%v", e.Block, ErrInvalidParameter, e.Name, e.Value)
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	return msg
}

// Unwrap returns ErrInvalidParameter and the reason for errors.Is/As support.
func (e *InvalidParameterError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrInvalidParameter}
	}
	return []error{ErrInvalidParameter, e.Reason}
}

// InvalidStateError reports a lifecycle call made in the wrong state.
type InvalidStateError struct {
	Block string
	Op    string
	State State
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("block %s: %s while %s: %v", e.Block, e.Op, e.State, ErrInvalidState)
}

// Unwrap returns ErrInvalidState for errors.Is support.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// BlockError wraps a fatal error reported by a block.
// It is the terminal error returned by Wait and Run.
type BlockError struct {
	// Block is the name of the block that failed.
	Block string
	// Op is the operation that failed ("process", "start", "stop").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *BlockError) Error() string {
	return fmt.Sprintf("block %s: %s: %v", e.Block, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *BlockError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a block.
// It is always fatal.
type PanicError struct {
	// Block is the name of the block that panicked.
	Block string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("block %s panicked: %v", e.Block, e.Value)
}
