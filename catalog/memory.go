package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps datasets in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string][]Row
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: make(map[string][]Row)}
}

func (m *MemoryStore) ListDatasets(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.datasets))
	for id := range m.datasets {
		if IsDatasetID(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) CreateDataset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[id]; !ok {
		m.datasets[id] = []Row{}
	}
	return nil
}

func (m *MemoryStore) DropDataset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.datasets, id)
	return nil
}

func (m *MemoryStore) ClearDataset(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[id]; ok {
		m.datasets[id] = []Row{}
	}
	return nil
}

func (m *MemoryStore) InsertRows(ctx context.Context, id string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.datasets[id]
	if !ok {
		return &StorageError{Op: "insert", Dataset: id, Err: errMissingDataset}
	}
	m.datasets[id] = append(existing, rows...)
	return nil
}

func (m *MemoryStore) TopRows(ctx context.Context, id string, n int) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.datasets[id]
	if n <= 0 || n > len(rows) {
		n = len(rows)
	}
	out := make([]Row, 0, n)
	for i := len(rows) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

// Rows returns a copy of every row of id in insertion order.
func (m *MemoryStore) Rows(id string) []Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Row, len(m.datasets[id]))
	copy(out, m.datasets[id])
	return out
}

// Put seeds a dataset directly, bypassing the synchronizer.
func (m *MemoryStore) Put(id string, rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[id] = append([]Row{}, rows...)
}
