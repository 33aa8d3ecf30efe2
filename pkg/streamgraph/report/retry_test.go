package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore returns err from its first failures saves.
type flakyStore struct {
	*report.MemoryStore
	failures int
	err      error
	calls    int
}

func (s *flakyStore) Save(r *report.Report) error {
	s.calls++
	if s.calls <= s.failures {
		return s.err
	}
	return s.MemoryStore.Save(r)
}

var errBusy = errors.New("busy")

func fastRetry(attempts int) report.RetryConfig {
	return report.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
		Retryable:      func(err error) bool { return errors.Is(err, errBusy) },
	}
}

func TestSaveWithRetry_Succeeds(t *testing.T) {
	store := &flakyStore{MemoryStore: report.NewMemoryStore(), failures: 2, err: errBusy}
	err := report.SaveWithRetry(context.Background(), store, newReport("run-1", "g", 0), fastRetry(3))
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)

	_, err = store.Load("run-1")
	assert.NoError(t, err)
}

func TestSaveWithRetry_GivesUp(t *testing.T) {
	store := &flakyStore{MemoryStore: report.NewMemoryStore(), failures: 5, err: errBusy}
	err := report.SaveWithRetry(context.Background(), store, newReport("run-1", "g", 0), fastRetry(3))

	var re *report.RetryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, re.Attempts)
	assert.Equal(t, "run-1", re.RunID)
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 3, store.calls)
}

func TestSaveWithRetry_PermanentError(t *testing.T) {
	store := &flakyStore{MemoryStore: report.NewMemoryStore(), failures: 5, err: report.ErrStoreClosed}
	err := report.SaveWithRetry(context.Background(), store, newReport("run-1", "g", 0), fastRetry(3))

	assert.ErrorIs(t, err, report.ErrStoreClosed)
	assert.Equal(t, 1, store.calls)
}

func TestSaveWithRetry_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &flakyStore{MemoryStore: report.NewMemoryStore(), failures: 5, err: errBusy}
	cfg := fastRetry(3)
	cfg.InitialBackoff = time.Hour
	err := report.SaveWithRetry(ctx, store, newReport("run-1", "g", 0), cfg)

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errBusy)
	assert.Equal(t, 1, store.calls)
}

func TestSaveWithRetry_NoRetry(t *testing.T) {
	store := &flakyStore{MemoryStore: report.NewMemoryStore(), failures: 1, err: errBusy}
	cfg := report.NoRetry
	cfg.Retryable = fastRetry(1).Retryable
	err := report.SaveWithRetry(context.Background(), store, newReport("run-1", "g", 0), cfg)

	assert.Error(t, err)
	assert.Equal(t, 1, store.calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, report.IsTransient(nil))
	assert.False(t, report.IsTransient(errBusy))
	assert.False(t, report.IsTransient(report.ErrNotFound))
}
