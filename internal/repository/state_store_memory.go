package repository

import (
	"context"
	"sync"
	"time"
)

type memoryStateStore struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryStateStore() StateStore {
	return newMemoryStateStore(time.Now)
}

func newMemoryStateStore(now func() time.Time) *memoryStateStore {
	return &memoryStateStore{
		claims: make(map[string]time.Time),
		now:    now,
	}
}

// remaining returns the time left on key, evicting it once lapsed. Caller holds mu.
func (s *memoryStateStore) remaining(key string) time.Duration {
	until, ok := s.claims[key]
	if !ok {
		return 0
	}
	left := until.Sub(s.now())
	if left <= 0 {
		delete(s.claims, key)
		return 0
	}
	return left
}

func (s *memoryStateStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remaining(key) > 0 {
		return false, nil
	}
	s.claims[key] = s.now().Add(ttl)
	return true, nil
}

func (s *memoryStateStore) Remaining(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining(key), nil
}

func (s *memoryStateStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, key)
	return nil
}
