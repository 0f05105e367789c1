// Package profiles: repository.go runs the SQL against the profiles table.
// One function, one query.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"letrasamigas.es/progress-service/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure creates the profile row if missing. An existing row only gets its
// username refreshed, and only when a non-empty one is given.
func (r *Repository) Ensure(ctx context.Context, userID, username string) error {
	query := `
		INSERT INTO profiles (id, username)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (id) DO UPDATE
		SET username = COALESCE(NULLIF(EXCLUDED.username, ''), profiles.username),
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, userID, username); err != nil {
		return fmt.Errorf("failed to ensure profile (user_id=%s): %w", userID, err)
	}
	return nil
}

// Get returns the profile or common.ErrProfileNotFound.
func (r *Repository) Get(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT id::text, COALESCE(username, ''), daily_streak, longest_streak, last_streak_update,
		       points, time_spent, last_active, telegram_chat_id, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.Username, &p.DailyStreak, &p.LongestStreak, &p.LastStreakUpdate,
		&p.Points, &p.TimeSpent, &p.LastActive, &p.TelegramChatID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read profile (user_id=%s): %w", userID, err)
	}
	return &p, nil
}

// AddTimeSpent adds minutes to time_spent and moves last_active to now.
func (r *Repository) AddTimeSpent(ctx context.Context, userID string, minutes int, now time.Time) (int, error) {
	query := `
		UPDATE profiles
		SET time_spent = time_spent + $2, last_active = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING time_spent
	`
	var total int
	err := r.db.QueryRow(ctx, query, userID, minutes, now).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to add time spent (user_id=%s): %w", userID, err)
	}
	return total, nil
}

// SetTelegramChat links (chatID != 0) or unlinks (chatID == 0) a Telegram chat.
func (r *Repository) SetTelegramChat(ctx context.Context, userID string, chatID int64) error {
	query := `
		UPDATE profiles
		SET telegram_chat_id = NULLIF($2, 0::bigint), reminder_sent_on = NULL, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to link telegram chat (user_id=%s): %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrProfileNotFound
	}
	return nil
}
