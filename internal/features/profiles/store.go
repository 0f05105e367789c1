// Package profiles: store.go defines the storage interface and its in-memory version.
package profiles

import (
	"context"
	"sync"
	"time"

	"letrasamigas.es/progress-service/internal/common"
)

// Store persists profiles.
type Store interface {
	Ensure(ctx context.Context, userID, username string) error
	Get(ctx context.Context, userID string) (*Profile, error)
	AddTimeSpent(ctx context.Context, userID string, minutes int, now time.Time) (int, error)
	SetTelegramChat(ctx context.Context, userID string, chatID int64) error
}

// MemoryStore keeps profiles in process memory (tests).
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (m *MemoryStore) Ensure(_ context.Context, userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		now := time.Now()
		m.profiles[userID] = &Profile{ID: userID, Username: username, CreatedAt: now, UpdatedAt: now}
		return nil
	}
	if username != "" {
		p.Username = username
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, common.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) AddTimeSpent(_ context.Context, userID string, minutes int, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return 0, common.ErrProfileNotFound
	}
	p.TimeSpent += minutes
	p.LastActive = &now
	return p.TimeSpent, nil
}

func (m *MemoryStore) SetTelegramChat(_ context.Context, userID string, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return common.ErrProfileNotFound
	}
	if chatID == 0 {
		p.TelegramChatID = nil
	} else {
		p.TelegramChatID = &chatID
	}
	return nil
}
