package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/danztee/cctv-eventd/pkg/detection"
)

// MemoryStore is an in-memory EventStore used by pipeline and control-plane
// tests that do not need a real Postgres instance.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]detection.Persisted
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]detection.Persisted)}
}

func (m *MemoryStore) Insert(ctx context.Context, result detection.Result) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.rows[id] = detection.Persisted{Result: result, EventID: id}
	return id, nil
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]detection.Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]detection.Persisted, 0, len(m.rows))
	for _, r := range m.rows {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].EventTimestamp.After(all[j].EventTimestamp)
	})
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (detection.Persisted, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return detection.Persisted{}, ErrNotFound
	}
	return r, nil
}
