package report

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory report store.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]stored // runID -> report
	closed bool
}

// stored keeps the encoded report so callers never share memory with the
// store.
type stored struct {
	info Info
	data []byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]stored)}
}

// Save implements Store.
func (m *MemoryStore) Save(r *Report) error {
	if r.RunID == "" {
		return ErrMissingRunID
	}
	data, err := r.Marshal()
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.data[r.RunID] = stored{info: r.Info(), data: data}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(runID string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.data[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(s.data)
}

// List implements Store.
func (m *MemoryStore) List(graph string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.data))
	for _, s := range m.data {
		if graph == "" || s.info.Graph == graph {
			infos = append(infos, s.info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].RunID < infos[j].RunID
		}
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of stored reports.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
