package store

import (
	"context"
	"sync"

	"github.com/AngelCh415/adboard/internal/models"
)

// SnapshotStore keeps at most one snapshot per profile. A Put replaces the
// previous snapshot wholesale: concurrent uploads race and the last write wins.
type SnapshotStore interface {
	Put(ctx context.Context, profile string, snap models.Snapshot) error
	Get(ctx context.Context, profile string) (models.Snapshot, bool, error)
	Clear(ctx context.Context, profile string) error
}

// MemoryStore lives for the process lifetime and is emptied on restart.
// The mutex guards the map only; uploads themselves are never serialized.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]models.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]models.Snapshot)}
}

func (s *MemoryStore) Put(_ context.Context, profile string, snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[profile] = snap
	return nil
}

func (s *MemoryStore) Get(_ context.Context, profile string) (models.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.slots[profile]
	return snap, ok, nil
}

func (s *MemoryStore) Clear(_ context.Context, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, profile)
	return nil
}
