package streamgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/event"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/observability"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/report"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// run is the state of one Start..Stop cycle.
type run struct {
	id     string
	cfg    runConfig
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	startedAt time.Time
	stop      atomic.Bool
	cycles    atomic.Int64

	// err is the terminal error; written by the scheduler before done closes.
	err  error
	done chan struct{}
}

// Start starts every block and runs the scheduler in the background.
// The run ends when Stop or RequestStop is called, when ctx is done, or
// when a block reports a fatal error; Wait returns the outcome.
//
// Start returns an InvalidStateError if the graph is already running,
// and a BlockError if a block fails to start (blocks already started are
// stopped again).
//
// Example:
//
//	if err := compiled.Start(ctx, streamgraph.WithLogger(logger)); err != nil {
//	    return err
//	}
//	defer compiled.Stop()
func (cg *CompiledGraph) Start(ctx context.Context, opts ...RunOption) error {
	if ctx == nil {
		return ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	cg.mu.Lock()
	defer cg.mu.Unlock()

	if st := cg.State(); st == Running {
		return &InvalidStateError{Block: cg.name, Op: "start", State: st}
	}
	if cg.State() == Stopped {
		for _, e := range cg.edges {
			e.Reset()
		}
	}

	r := &run{
		id:        cfg.runID,
		cfg:       cfg,
		logger:    observability.EnrichLogger(cfg.logger, cg.name, cfg.runID),
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	cg.logger.Store(r.logger)

	spanCtx, span := cfg.spans.StartRunSpan(ctx, cg.name, r.id)
	r.span = span

	if err := cg.startNodes(r); err != nil {
		cfg.spans.EndSpanWithError(span, err)
		observability.LogRunError(cfg.logger, r.id, err, 0, blockOf(err))
		return err
	}

	r.ctx, r.cancel = context.WithCancel(spanCtx)
	cg.run = r
	cg.state.Store(int32(Running))

	observability.LogRunStart(cfg.logger, r.id, len(cg.order), cfg.workers)
	cg.publish(r.ctx, r, event.New(event.TypeGraphStarted, cg.name, event.RunPayload{
		RunID:  r.id,
		Blocks: len(cg.order),
	}, event.WithCorrelationID(r.id)))

	go cg.schedule(r)
	return nil
}

// startNodes starts blocks in topological order. On failure it stops the
// blocks it already started.
func (cg *CompiledGraph) startNodes(r *run) error {
	for i, n := range cg.order {
		if err := n.Start(); err != nil {
			for _, started := range cg.order[:i] {
				if serr := started.Stop(); serr != nil {
					r.logger.Warn("block stop failed", slog.String("block", started.Name()), slog.String("error", serr.Error()))
				}
			}
			return err
		}
		observability.LogBlockState(r.logger, n.Name(), Running.String())
	}
	return nil
}

// RequestStop asks the scheduler to stop after the block it is currently
// processing. It does not wait; use Wait or Stop for that.
func (cg *CompiledGraph) RequestStop() {
	if r := cg.current(); r != nil {
		r.stop.Store(true)
	}
}

// Stop stops a running graph and waits for the scheduler to exit.
// Stop is idempotent and is a no-op on a graph that is not running.
// It always returns nil; a fatal error that ended the run is reported by
// Wait.
//
// Stop must not be called from inside a block's Process.
func (cg *CompiledGraph) Stop() error {
	r := cg.current()
	if r == nil {
		return nil
	}
	r.stop.Store(true)
	<-r.done
	return nil
}

// Wait blocks until the current run ends and returns its terminal error:
// nil after Stop or context cancellation, a *BlockError after a fatal
// block error. Wait on a graph that was never started returns nil.
func (cg *CompiledGraph) Wait() error {
	r := cg.current()
	if r == nil {
		return nil
	}
	<-r.done
	return r.err
}

// Run starts the graph and blocks until ctx is done or a block fails.
// Cancelling ctx is a normal way to end a run and yields nil.
//
// Example:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//	err := compiled.Run(ctx, streamgraph.WithWorkers(2))
func (cg *CompiledGraph) Run(ctx context.Context, opts ...RunOption) error {
	if err := cg.Start(ctx, opts...); err != nil {
		return err
	}
	return cg.Wait()
}

// SetParameter changes a block parameter. It may be called in any state;
// on a running graph the new value applies from the block's next Process
// call. A rejected value leaves the previous one in effect.
func (cg *CompiledGraph) SetParameter(block, name string, value any) error {
	n, ok := cg.nodes[block]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, block)
	}

	err := n.SetParameter(name, value)

	logger := cg.log()
	observability.LogParameterChange(logger, block, name, value, err)

	if r := cg.current(); r != nil && cg.State() == Running {
		payload := event.ParameterPayload{Block: block, Name: name, Value: value}
		if err != nil {
			payload.Error = err.Error()
		}
		cg.publish(r.ctx, r, event.New(event.TypeParameterChanged, cg.name, payload, event.WithCorrelationID(r.id)))
		r.cfg.spans.AddSpanEvent(r.ctx, "parameter_changed",
			attribute.String("block", block),
			attribute.String("param", name),
			attribute.String("value", fmt.Sprint(value)),
			attribute.Bool("accepted", err == nil),
		)
	}
	return err
}

// schedule is the scheduler loop of one run.
func (cg *CompiledGraph) schedule(r *run) {
	defer cg.finish(r)

	idle := time.NewTimer(time.Hour)
	idle.Stop()
	defer idle.Stop()

	for !cg.stopping(r) {
		progressed, err := cg.cycle(r)
		r.cycles.Add(1)
		if err != nil {
			r.err = err
			return
		}
		if progressed {
			continue
		}

		if r.cfg.idleSleep == 0 {
			runtime.Gosched()
			continue
		}
		idle.Reset(r.cfg.idleSleep)
		select {
		case <-r.ctx.Done():
			return
		case <-idle.C:
		}
	}
}

func (cg *CompiledGraph) stopping(r *run) bool {
	return r.stop.Load() || r.ctx.Err() != nil
}

// cycle gives every block one Process call in topological order.
// It reports whether any block moved samples.
func (cg *CompiledGraph) cycle(r *run) (bool, error) {
	if r.cfg.workers > 1 {
		return cg.cycleLevels(r)
	}

	progressed := false
	for _, n := range cg.order {
		if cg.stopping(r) {
			return progressed, nil
		}
		res := n.Process()
		if !res.Exhausted {
			progressed = true
		}
		if err := cg.handle(r, n, res); err != nil {
			return progressed, err
		}
	}
	return progressed, nil
}

// cycleLevels processes the blocks of each level concurrently, at most
// cfg.workers at a time. Levels run one after another.
func (cg *CompiledGraph) cycleLevels(r *run) (bool, error) {
	var progressed atomic.Bool
	for _, level := range cg.levels {
		if cg.stopping(r) {
			break
		}

		var g errgroup.Group
		g.SetLimit(r.cfg.workers)
		for _, n := range level {
			g.Go(func() error {
				if cg.stopping(r) {
					return nil
				}
				res := n.Process()
				if !res.Exhausted {
					progressed.Store(true)
				}
				return cg.handle(r, n, res)
			})
		}
		if err := g.Wait(); err != nil {
			return progressed.Load(), err
		}
	}
	return progressed.Load(), nil
}

// handle records one Process result. It returns a *BlockError when the
// result is fatal.
func (cg *CompiledGraph) handle(r *run, n *Node, res ProcessResult) error {
	r.cfg.metrics.RecordProcess(r.ctx, n.Name(), res.Consumed, res.Produced, res.Err)
	if res.Err == nil {
		return nil
	}

	var ise *InvalidStateError
	if errors.As(res.Err, &ise) {
		// The node was stopped underneath the scheduler; nothing to report.
		return nil
	}

	observability.LogBlockError(r.logger, n.Name(), res.Err, res.Fatal)
	cg.publish(r.ctx, r, event.New(event.TypeBlockError, cg.name, event.BlockErrorPayload{
		Block: n.Name(),
		Error: res.Err.Error(),
		Fatal: res.Fatal,
	}, event.WithCorrelationID(r.id)))
	r.cfg.spans.AddSpanEvent(r.ctx, "block_error",
		attribute.String("block", n.Name()),
		attribute.String("error", res.Err.Error()),
		attribute.Bool("fatal", res.Fatal),
	)

	if res.Fatal {
		return &BlockError{Block: n.Name(), Op: "process", Err: res.Err}
	}
	return nil
}

// finish stops every block and reports the end of the run.
func (cg *CompiledGraph) finish(r *run) {
	for _, n := range cg.order {
		if err := n.Stop(); err != nil {
			r.logger.Warn("block stop failed", slog.String("block", n.Name()), slog.String("error", err.Error()))
			continue
		}
		observability.LogBlockState(r.logger, n.Name(), Stopped.String())
	}

	stoppedAt := time.Now()
	duration := stoppedAt.Sub(r.startedAt)
	durationMs := float64(duration.Milliseconds())

	// The run context may already be cancelled; the end of the run is
	// still reported.
	ctx := context.WithoutCancel(r.ctx)
	r.cfg.metrics.RecordRun(ctx, r.err == nil, duration)

	payload := event.RunPayload{RunID: r.id, Blocks: len(cg.order), DurationMs: durationMs}
	if r.err != nil {
		failed := blockOf(r.err)
		observability.LogRunError(r.cfg.logger, r.id, r.err, durationMs, failed)
		payload.Error = r.err.Error()
		payload.Block = failed
		cg.publish(ctx, r, event.New(event.TypeGraphFailed, cg.name, payload, event.WithCorrelationID(r.id)))
	} else {
		observability.LogRunStopped(r.cfg.logger, r.id, durationMs, r.cycles.Load())
		cg.publish(ctx, r, event.New(event.TypeGraphStopped, cg.name, payload, event.WithCorrelationID(r.id)))
	}

	if r.cfg.reports != nil {
		if err := report.SaveWithRetry(ctx, r.cfg.reports, cg.report(r, stoppedAt), r.cfg.reportRetry); err != nil {
			r.logger.Warn("run report not saved", slog.String("error", err.Error()))
		}
	}

	r.cfg.spans.EndSpanWithError(r.span, r.err)
	r.cancel()

	cg.state.Store(int32(Stopped))
	close(r.done)
}

// report builds the run report from the block counters.
func (cg *CompiledGraph) report(r *run, stoppedAt time.Time) *report.Report {
	rep := &report.Report{
		Version:   report.Version,
		RunID:     r.id,
		Graph:     cg.name,
		StartedAt: r.startedAt,
		StoppedAt: stoppedAt,
		Cycles:    r.cycles.Load(),
	}
	if r.err != nil {
		rep.Error = r.err.Error()
		rep.FailedBlock = blockOf(r.err)
	}
	for _, n := range cg.order {
		st := n.Stats()
		rep.Blocks = append(rep.Blocks, report.BlockReport{
			Name:       n.Name(),
			Calls:      st.Calls,
			Consumed:   st.Consumed,
			Produced:   st.Produced,
			Errors:     st.Errors,
			Parameters: n.Parameters(),
		})
	}
	return rep
}

// publish sends evt to the run's bus, if any. Delivery failures are only
// logged.
func (cg *CompiledGraph) publish(ctx context.Context, r *run, evt event.Event) {
	if r.cfg.bus == nil {
		return
	}
	if err := r.cfg.bus.Publish(ctx, evt); err != nil {
		r.logger.Debug("event not published",
			slog.String("event_type", evt.Type()),
			slog.String("error", err.Error()),
		)
	}
}

// blockOf returns the name of the block an error is attributed to.
func blockOf(err error) string {
	var be *BlockError
	if errors.As(err, &be) {
		return be.Block
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe.Block
	}
	return ""
}
