// Package points: repository.go works with profiles.points and the points_ledger table.
// Every grant runs in one DB transaction so the total and its ledger row never diverge.
package points

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"letrasamigas.es/progress-service/internal/common"
)

// Repository is the remote store for points.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a points repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AddPoints increments profiles.points and records the ledger row.
// The profile row is created on the fly so a grant never races profile bootstrap.
func (r *Repository) AddPoints(ctx context.Context, userID string, entry Entry) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	err = tx.QueryRow(ctx, `
		INSERT INTO profiles (id, points)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET points = profiles.points + EXCLUDED.points, updated_at = NOW()
		RETURNING points
	`, userID, entry.Amount).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to increment points (user_id=%s): %w", userID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO points_ledger (id, user_id, amount, reason, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, userID, entry.Amount, entry.Reason, entry.Source, entry.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to write ledger entry (user_id=%s): %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit grant: %w", err)
	}
	return total, nil
}

// TotalPoints returns the stored total; a missing profile has 0 points.
func (r *Repository) TotalPoints(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE((SELECT points FROM profiles WHERE id = $1), 0)
	`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to read points (user_id=%s): %w", userID, err)
	}
	return total, nil
}

// ReconcileTotal locks the profile row, sums the ledger and fixes the total.
func (r *Repository) ReconcileTotal(ctx context.Context, userID string) (Reconciliation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rec Reconciliation
	err = tx.QueryRow(ctx, `SELECT points FROM profiles WHERE id = $1 FOR UPDATE`, userID).Scan(&rec.Stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reconciliation{}, common.ErrProfileNotFound
	}
	if err != nil {
		return Reconciliation{}, fmt.Errorf("failed to lock profile (user_id=%s): %w", userID, err)
	}

	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM points_ledger WHERE user_id = $1
	`, userID).Scan(&rec.Recomputed)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("failed to sum ledger (user_id=%s): %w", userID, err)
	}

	if rec.Stored != rec.Recomputed {
		_, err = tx.Exec(ctx, `
			UPDATE profiles SET points = $2, updated_at = NOW() WHERE id = $1
		`, userID, rec.Recomputed)
		if err != nil {
			return Reconciliation{}, fmt.Errorf("failed to overwrite points (user_id=%s): %w", userID, err)
		}
		rec.Corrected = true
	}

	if err := tx.Commit(ctx); err != nil {
		return Reconciliation{}, fmt.Errorf("failed to commit reconciliation: %w", err)
	}
	return rec, nil
}

// ProfileIDs lists every profile, oldest first.
func (r *Repository) ProfileIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id::text FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// History returns the last limit ledger entries of a user, newest first.
func (r *Repository) History(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := `
		SELECT id::text, user_id::text, amount, reason, source, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
