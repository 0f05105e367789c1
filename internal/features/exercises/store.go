// Package exercises: store.go defines result storage and its in-memory version.
package exercises

import (
	"context"
	"sort"
	"sync"
)

// Store persists exercise results of authenticated users.
type Store interface {
	Save(ctx context.Context, res Result) error
	// List returns results newest first.
	List(ctx context.Context, userID string) ([]Result, error)
}

// MemoryStore keeps results in process memory (tests).
type MemoryStore struct {
	mu      sync.Mutex
	results map[string][]Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string][]Result)}
}

func (m *MemoryStore) Save(_ context.Context, res Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[res.UserID] = append(m.results[res.UserID], res)
	return nil
}

func (m *MemoryStore) List(_ context.Context, userID string) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Result, len(m.results[userID]))
	copy(out, m.results[userID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}
