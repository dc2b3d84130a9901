package state

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record

	// PutErr, when set, is returned from Put. Tests use it to simulate a
	// state write failure after a durable article write.
	PutErr error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (ms *MemoryStore) Get(slug string) (Record, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	rec, ok := ms.records[slug]
	return rec, ok
}

func (ms *MemoryStore) Put(slug string, rec Record) error {
	if ms.PutErr != nil {
		return ms.PutErr
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.records[slug] = rec
	return nil
}

func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.records)
}

func (ms *MemoryStore) Slugs() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := make([]string, 0, len(ms.records))
	for slug := range ms.records {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
