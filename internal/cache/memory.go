package cache

import (
	"context"
	"sync"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

type entry struct {
	resp    domain.Response
	expires time.Time
}

// MemoryStore keeps entries in process. Expired entries are removed when read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
}

var _ ports.CacheStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]entry{}}
}

func (m *MemoryStore) Get(_ context.Context, key string, now time.Time) (domain.Response, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return domain.Response{}, false, nil
	}
	if !now.Before(e.expires) {
		delete(m.entries, key)
		return domain.Response{}, false, nil
	}
	return e.resp, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, resp domain.Response, createdAt time.Time, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = entry{resp: resp, expires: createdAt.Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len reports how many entries are held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
