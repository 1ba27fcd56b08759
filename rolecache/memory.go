package rolecache

import (
	"context"
	"sync"

	"github.com/khlpkg/gateway/event"
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]event.Role{}}
}

// MemoryStore keeps role lists in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]event.Role
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, guildID string) ([]event.Role, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roles, ok := s.entries[guildID]
	if !ok {
		return nil, false, nil
	}
	return append([]event.Role(nil), roles...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, guildID string, roles []event.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[guildID] = append([]event.Role(nil), roles...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, guildID)
	return nil
}
