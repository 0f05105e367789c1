// Package streak: repository.go reads and writes the streak columns of the profiles table.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"letrasamigas.es/progress-service/internal/common"
)

// Repository is the remote profile store for streaks.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a streak repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LoadStreak returns the streak of a user. A missing profile reads as a zero state.
func (r *Repository) LoadStreak(ctx context.Context, userID string) (State, error) {
	query := `
		SELECT daily_streak, longest_streak, last_streak_update
		FROM profiles
		WHERE id = $1
	`
	var s State
	err := r.db.QueryRow(ctx, query, userID).Scan(&s.Current, &s.Longest, &s.LastUpdate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to load streak (user_id=%s): %w", userID, err)
	}
	return s, nil
}

// SaveStreak writes the streak only if last_streak_update still equals expected.
// The upsert covers the first evaluation of a user whose profile row does not exist yet.
func (r *Repository) SaveStreak(ctx context.Context, userID string, expected *time.Time, next State) error {
	query := `
		INSERT INTO profiles (id, daily_streak, longest_streak, last_streak_update)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET daily_streak = EXCLUDED.daily_streak,
		    longest_streak = GREATEST(profiles.longest_streak, EXCLUDED.longest_streak),
		    last_streak_update = EXCLUDED.last_streak_update,
		    updated_at = NOW()
		WHERE profiles.last_streak_update IS NOT DISTINCT FROM $5::timestamptz
	`
	tag, err := r.db.Exec(ctx, query, userID, next.Current, next.Longest, next.LastUpdate, expected)
	if err != nil {
		return fmt.Errorf("failed to save streak (user_id=%s): %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrStreakConflict
	}
	return nil
}

// ReminderCandidates returns users with a linked Telegram chat whose streak is at least
// minStreak, whose last evaluation happened in [yesterdayStart, todayStart) and who
// have not been reminded on remindDay.
func (r *Repository) ReminderCandidates(ctx context.Context, minStreak int, yesterdayStart, todayStart, remindDay time.Time) ([]ReminderCandidate, error) {
	query := `
		SELECT id, COALESCE(username, ''), daily_streak, telegram_chat_id
		FROM profiles
		WHERE telegram_chat_id IS NOT NULL
		  AND daily_streak >= $1
		  AND last_streak_update >= $2
		  AND last_streak_update < $3
		  AND reminder_sent_on IS DISTINCT FROM $4::date
	`
	rows, err := r.db.Query(ctx, query, minStreak, yesterdayStart, todayStart, remindDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder candidates: %w", err)
	}
	defer rows.Close()

	var out []ReminderCandidate
	for rows.Next() {
		var c ReminderCandidate
		if err := rows.Scan(&c.UserID, &c.Username, &c.CurrentStreak, &c.TelegramChatID); err != nil {
			return nil, fmt.Errorf("failed to scan reminder candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminder candidates: %w", err)
	}
	return out, nil
}

// MarkReminderSent records that the user got today's reminder.
func (r *Repository) MarkReminderSent(ctx context.Context, userID string, day time.Time) error {
	query := `UPDATE profiles SET reminder_sent_on = $2::date, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, userID, day); err != nil {
		return fmt.Errorf("failed to mark reminder (user_id=%s): %w", userID, err)
	}
	return nil
}
