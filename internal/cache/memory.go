package cache

import (
	"context"
	"sync"
	"time"

	"github.com/terra-clan/build-directory/internal/models"
)

type memoryEntry struct {
	page      *models.ResultPage
	expiresAt time.Time
}

// MemoryStore is an in-process Store with per-entry TTL. Expired entries are
// invisible to Get and removed by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store whose entries live for ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

// Get returns a live entry
func (s *MemoryStore) Get(_ context.Context, key string) (*models.ResultPage, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.page, true, nil
}

// Set stores page for the configured TTL
func (s *MemoryStore) Set(_ context.Context, key string, page *models.ResultPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{page: page, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// InvalidateAll removes every entry
func (s *MemoryStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}

// Sweep deletes expired entries and returns how many were removed
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
