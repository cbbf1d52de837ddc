package buildstats

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in process memory
type MemoryStore struct {
	mu   sync.Mutex
	snap *Snapshot

	// WriteErr, when set, is returned by Write
	WriteErr error
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Read implements Store
func (s *MemoryStore) Read(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return nil, ErrNotFound
	}
	snap := *s.snap
	return &snap, nil
}

// Write implements Store
func (s *MemoryStore) Write(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.WriteErr != nil {
		return s.WriteErr
	}
	stored := *snap
	s.snap = &stored
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = nil
	return nil
}

// Location implements Store
func (s *MemoryStore) Location() string {
	return "memory"
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
