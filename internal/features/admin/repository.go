// Package admin: repository.go works with the admin_login_attempts table.
package admin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptStore records admin token checks.
type AttemptStore interface {
	LogAttempt(ctx context.Context, client string, success bool) error
	RecentFailures(ctx context.Context, client string, since time.Time) (int, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt records one attempt.
func (r *Repository) LogAttempt(ctx context.Context, client string, success bool) error {
	query := `INSERT INTO admin_login_attempts (client, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, client, success); err != nil {
		return fmt.Errorf("failed to log admin attempt: %w", err)
	}
	return nil
}

// RecentFailures counts failed attempts of client since the given time.
func (r *Repository) RecentFailures(ctx context.Context, client string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE client = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, client, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count admin attempts: %w", err)
	}
	return count, nil
}

// MemoryAttempts keeps attempts in process memory (tests).
type MemoryAttempts struct {
	mu       sync.Mutex
	attempts []LoginAttempt
	now      func() time.Time
}

func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{now: time.Now}
}

func (m *MemoryAttempts) LogAttempt(_ context.Context, client string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, LoginAttempt{
		ID:          int64(len(m.attempts) + 1),
		Client:      client,
		AttemptTime: m.now(),
		Success:     success,
	})
	return nil
}

func (m *MemoryAttempts) RecentFailures(_ context.Context, client string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if a.Client == client && !a.Success && !a.AttemptTime.Before(since) {
			n++
		}
	}
	return n, nil
}
