package usage

import (
	"context"
	"sync"
)

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	monthly map[string]Counters
	state   map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{monthly: map[string]Counters{}, state: map[string]string{}}
}

func (m *MemoryStore) EnsurePeriod(_ context.Context, p Period, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.monthly[p.Key]; !ok {
		m.monthly[p.Key] = Counters{}
	}
	return nil
}

func (m *MemoryStore) Monthly(_ context.Context, key string) (Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monthly[key], nil
}

func (m *MemoryStore) Increment(_ context.Context, key string, d Counters, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.monthly[key]
	c.ClassAOps += d.ClassAOps
	c.ClassBOps += d.ClassBOps
	c.APIRequests += d.APIRequests
	m.monthly[key] = c
	return nil
}

func (m *MemoryStore) State(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[key]
	return v, ok, nil
}

func (m *MemoryStore) SetState(_ context.Context, key, value string, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = value
	return nil
}
