package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store. The LRU evicts by size and by maxTTL;
// shorter per-entry TTLs are checked on read.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryStore keeps at most size entries, none longer than maxTTL.
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = 256
	}
	return &MemoryStore{lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.lru.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.lru.Add(key, e)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.lru.Purge()
	return nil
}

// Len is the number of entries currently held, including not yet swept ones.
func (s *MemoryStore) Len() int { return s.lru.Len() }
