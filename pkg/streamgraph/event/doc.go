// Package event publishes graph lifecycle events to in-process subscribers.
//
// A compiled graph configured with a bus (streamgraph.WithEventBus) emits:
//
//   - graph.started, graph.stopped, graph.failed
//   - block.error for every error a block reports
//   - block.parameter_changed for every accepted or rejected SetParameter
//
// Every event carries the run ID as its correlation ID, so all events of
// one run can be grouped.
//
// # Bus
//
// LocalBus delivers events on one goroutine per subscription:
//
//	bus := event.NewBus(event.DefaultBusConfig)
//	defer bus.Close()
//
//	sub, err := bus.Subscribe([]string{event.TypeBlockError}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        p := evt.Data().(event.BlockErrorPayload)
//	        log.Printf("%s: %s", p.Block, p.Error)
//	        return nil
//	    }))
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
//
// The default configuration never blocks the publisher: when a subscriber
// falls behind, events are dropped and reported through OnDrop. The
// scheduler publishes from its own loop and must not stall on a slow
// subscriber.
package event
