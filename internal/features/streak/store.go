// Package streak: store.go defines the storage strategy behind the orchestrator.
package streak

import (
	"context"
	"sync"
	"time"

	"letrasamigas.es/progress-service/internal/common"
)

// Store persists streak state per owner. The owner is a user id for the
// remote profile store and a device id for the device store.
type Store interface {
	LoadStreak(ctx context.Context, owner string) (State, error)
	// SaveStreak writes next only if the stored last update still equals expected
	// (nil meaning "never evaluated"); otherwise it returns common.ErrStreakConflict.
	SaveStreak(ctx context.Context, owner string, expected *time.Time, next State) error
}

// MemoryStore keeps streaks in process memory. Used as the device store when
// Redis is not configured, and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

func (m *MemoryStore) LoadStreak(_ context.Context, owner string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.states[owner]), nil
}

func (m *MemoryStore) SaveStreak(_ context.Context, owner string, expected *time.Time, next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !sameInstant(m.states[owner].LastUpdate, expected) {
		return common.ErrStreakConflict
	}
	m.states[owner] = copyState(next)
	return nil
}

func copyState(s State) State {
	if s.LastUpdate != nil {
		t := *s.LastUpdate
		s.LastUpdate = &t
	}
	return s
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
