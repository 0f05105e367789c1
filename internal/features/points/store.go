// Package points: store.go defines where totals and ledger entries live.
package points

import (
	"context"
	"sort"
	"sync"
)

// Store keeps the running total per owner (user id or device id).
type Store interface {
	// AddPoints atomically adds entry.Amount to the owner's total and returns the new total.
	// Stores that keep a ledger also persist entry.
	AddPoints(ctx context.Context, owner string, entry Entry) (int64, error)
	TotalPoints(ctx context.Context, owner string) (int64, error)
}

// Ledger is the part of the remote store that keeps immutable entries.
type Ledger interface {
	// ReconcileTotal recomputes the total from the ledger and overwrites the stored
	// value when they differ.
	ReconcileTotal(ctx context.Context, userID string) (Reconciliation, error)
	ProfileIDs(ctx context.Context) ([]string, error)
	History(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// MemoryStore implements Store and Ledger in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	totals  map[string]int64
	entries map[string][]Entry
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		totals:  make(map[string]int64),
		entries: make(map[string][]Entry),
	}
}

func (m *MemoryStore) AddPoints(_ context.Context, owner string, entry Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, err := AddTotal(m.totals[owner], entry.Amount)
	if err != nil {
		return 0, err
	}
	m.totals[owner] = total
	m.entries[owner] = append(m.entries[owner], entry)
	return total, nil
}

func (m *MemoryStore) TotalPoints(_ context.Context, owner string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals[owner], nil
}

// SetTotal overwrites the stored total without touching the ledger.
func (m *MemoryStore) SetTotal(owner string, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[owner] = total
}

func (m *MemoryStore) ReconcileTotal(_ context.Context, userID string) (Reconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sum int64
	for _, e := range m.entries[userID] {
		sum += e.Amount
	}
	r := Reconciliation{Stored: m.totals[userID], Recomputed: sum}
	if r.Stored != r.Recomputed {
		m.totals[userID] = sum
		r.Corrected = true
	}
	return r, nil
}

func (m *MemoryStore) ProfileIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.totals))
	for id := range m.totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) History(_ context.Context, userID string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.entries[userID]
	out := make([]Entry, 0, min(limit, len(src)))
	for i := len(src) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, src[i])
	}
	return out, nil
}
