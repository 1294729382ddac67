package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the cursor in process memory. It is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	last time.Time
	ok   bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreAt returns a store already holding the cursor at.
func NewMemoryStoreAt(at time.Time) *MemoryStore {
	return &MemoryStore{last: at, ok: true}
}

func (s *MemoryStore) LastSync(context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.ok, nil
}

func (s *MemoryStore) RecordSync(_ context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last, s.ok = at, true
	return nil
}

func (s *MemoryStore) Close() error { return nil }
