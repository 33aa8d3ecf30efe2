package signal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Dispatcher sends and processes signals.
type Dispatcher struct {
	registry *Registry
	store    Store
	logger   *slog.Logger
}

// NewDispatcher creates a new signal dispatcher.
func NewDispatcher(registry *Registry, store Store) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the dispatcher.
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Send enqueues a signal.
func (d *Dispatcher) Send(ctx context.Context, sig *Signal) error {
	if sig.Target == "" {
		return errors.New("target is required")
	}
	if sig.Name == "" {
		return errors.New("signal name is required")
	}

	if err := d.store.Enqueue(ctx, sig); err != nil {
		return fmt.Errorf("enqueue signal: %w", err)
	}

	d.logger.Debug("signal sent",
		slog.String("signal_id", sig.ID),
		slog.String("signal_name", sig.Name),
		slog.String("target", sig.Target),
	)
	return nil
}

// Process handles all pending signals for a target in send order.
// A failing signal is marked failed and does not stop the others; the
// failures are returned joined.
func (d *Dispatcher) Process(ctx context.Context, target string) (int, error) {
	signals, err := d.store.Pending(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("dequeue signals: %w", err)
	}

	var errs []error
	for _, sig := range signals {
		if err := d.processOne(ctx, sig); err != nil {
			d.logger.Warn("signal processing failed",
				slog.String("signal_id", sig.ID),
				slog.String("signal_name", sig.Name),
				slog.String("target", target),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("signal %s (%s): %w", sig.ID, sig.Name, err))
		}
	}
	return len(signals), errors.Join(errs...)
}

// Poll calls Process every interval until ctx is done.
// Handler failures are logged by Process and do not end the loop.
func (d *Dispatcher) Poll(ctx context.Context, target string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.Process(ctx, target); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (d *Dispatcher) processOne(ctx context.Context, sig *Signal) error {
	handler, ok := d.registry.Get(sig.Name)
	if !ok {
		d.markFailed(ctx, sig.ID, ErrNoHandler)
		return ErrNoHandler
	}

	if err := handler(ctx, sig); err != nil {
		d.markFailed(ctx, sig.ID, err)
		return err
	}

	if err := d.store.MarkProcessed(ctx, sig.ID); err != nil {
		d.logger.Error("failed to mark signal as processed",
			slog.String("signal_id", sig.ID),
			slog.String("error", err.Error()),
		)
	}

	d.logger.Debug("signal processed",
		slog.String("signal_id", sig.ID),
		slog.String("signal_name", sig.Name),
		slog.String("target", sig.Target),
	)
	return nil
}

func (d *Dispatcher) markFailed(ctx context.Context, id string, cause error) {
	if err := d.store.MarkFailed(ctx, id, cause); err != nil {
		d.logger.Error("failed to mark signal as failed",
			slog.String("signal_id", id),
			slog.String("error", err.Error()),
		)
	}
}
