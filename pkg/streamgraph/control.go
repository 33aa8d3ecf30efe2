package streamgraph

import (
	"context"
	"fmt"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph/signal"
)

// Control signal names handled by ControlHandlers.
const (
	// SignalSetParameter changes a block parameter.
	// Payload: {"block": string, "name": string, "value": any}.
	SignalSetParameter = "set_parameter"

	// SignalStop stops the graph. It has no payload.
	SignalStop = "stop"
)

// ControlHandlers returns a signal registry with the standard control
// handlers for cg.
//
// Example:
//
//	d := signal.NewDispatcher(streamgraph.ControlHandlers(compiled), signal.NewMemoryStore())
//	go d.Poll(ctx, compiled.Name(), 50*time.Millisecond)
func ControlHandlers(cg *CompiledGraph) *signal.Registry {
	reg := signal.NewRegistry()
	if err := RegisterControlHandlers(reg, cg); err != nil {
		// The registry is new, so names cannot collide.
		panic(err)
	}
	return reg
}

// RegisterControlHandlers adds the set_parameter and stop handlers for cg
// to an existing registry.
func RegisterControlHandlers(reg *signal.Registry, cg *CompiledGraph) error {
	if err := reg.Register(SignalSetParameter, setParameterHandler(cg)); err != nil {
		return err
	}
	return reg.Register(SignalStop, stopHandler(cg))
}

func setParameterHandler(cg *CompiledGraph) signal.Handler {
	return func(_ context.Context, sig *signal.Signal) error {
		block, err := sig.String("block")
		if err != nil {
			return err
		}
		name, err := sig.String("name")
		if err != nil {
			return err
		}
		value, ok := sig.Payload["value"]
		if !ok {
			return fmt.Errorf("signal %s: %w: %q", sig.Name, signal.ErrMissingField, "value")
		}
		return cg.SetParameter(block, name, value)
	}
}

// stopHandler requests a stop without waiting, so a dispatcher polling
// from a goroutine of the run never waits on itself.
func stopHandler(cg *CompiledGraph) signal.Handler {
	return func(context.Context, *signal.Signal) error {
		cg.RequestStop()
		return nil
	}
}
