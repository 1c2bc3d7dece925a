// Package cooldown implements the soft per-key rate limit used for
// on-demand emails.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps cooldowns in process memory. State is lost on restart and
// is not shared between instances.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expires: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryStore) Acquire(_ context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if until, ok := s.expires[key]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	s.sweep(now)
	s.expires[key] = now.Add(window)
	return true, 0, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, key)
	return nil
}

// sweep drops expired keys. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for k, until := range s.expires {
		if !now.Before(until) {
			delete(s.expires, k)
		}
	}
}
