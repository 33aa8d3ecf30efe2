package signal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store queues signals until they are processed.
type Store interface {
	// Enqueue adds a signal for delivery.
	Enqueue(ctx context.Context, sig *Signal) error

	// Pending returns pending signals for a target in send order.
	Pending(ctx context.Context, target string) ([]*Signal, error)

	// Get retrieves a signal by ID.
	Get(ctx context.Context, id string) (*Signal, error)

	// MarkProcessed marks a signal as successfully processed.
	MarkProcessed(ctx context.Context, id string) error

	// MarkFailed marks a signal as failed with an error.
	MarkFailed(ctx context.Context, id string, err error) error

	// List returns all signals for a target in send order.
	List(ctx context.Context, target string) ([]*Signal, error)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	signals  map[string]*Signal
	byTarget map[string][]string // target -> signal IDs in send order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory signal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signals:  make(map[string]*Signal),
		byTarget: make(map[string][]string),
	}
}

// Enqueue fills in a missing ID, send time and status, then stores a copy.
func (s *MemoryStore) Enqueue(_ context.Context, sig *Signal) error {
	if sig.ID == "" {
		sig.ID = "sig-" + uuid.New().String()[:8]
	}
	if sig.SentAt.IsZero() {
		sig.SentAt = time.Now()
	}
	if sig.Status == "" {
		sig.Status = StatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.signals[sig.ID]; !exists {
		s.byTarget[sig.Target] = append(s.byTarget[sig.Target], sig.ID)
	}
	s.signals[sig.ID] = sig.Clone()
	return nil
}

// Pending implements Store.
func (s *MemoryStore) Pending(_ context.Context, target string) ([]*Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*Signal
	for _, id := range s.byTarget[target] {
		if sig := s.signals[id]; sig.Status == StatusPending {
			pending = append(pending, sig.Clone())
		}
	}
	return pending, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (*Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.signals[id]
	if !ok {
		return nil, ErrSignalNotFound
	}
	return sig.Clone(), nil
}

// MarkProcessed implements Store.
func (s *MemoryStore) MarkProcessed(_ context.Context, id string) error {
	return s.mark(id, StatusProcessed, nil)
}

// MarkFailed implements Store.
func (s *MemoryStore) MarkFailed(_ context.Context, id string, err error) error {
	return s.mark(id, StatusFailed, err)
}

func (s *MemoryStore) mark(id string, status Status, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig, ok := s.signals[id]
	if !ok {
		return ErrSignalNotFound
	}
	now := time.Now()
	sig.Status = status
	sig.ProcessedAt = &now
	if err != nil {
		sig.Error = err.Error()
	}
	return nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, target string) ([]*Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byTarget[target]
	out := make([]*Signal, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.signals[id].Clone())
	}
	return out, nil
}
