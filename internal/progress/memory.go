package progress

import (
	"context"
	"sync"

	"github.com/playperu/scavengerbot/internal/hunt"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]hunt.Progress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]hunt.Progress)}
}

func (s *MemoryStore) Get(_ context.Context, senderID string) (hunt.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[senderID], nil
}

func (s *MemoryStore) Put(_ context.Context, senderID string, p hunt.Progress) error {
	s.mu.Lock()
	s.records[senderID] = p
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, senderID string) error {
	s.mu.Lock()
	delete(s.records, senderID)
	s.mu.Unlock()
	return nil
}

// Check always succeeds; it lets the store sit in health checks.
func (s *MemoryStore) Check(context.Context) error { return nil }
