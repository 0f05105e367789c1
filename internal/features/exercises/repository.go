// Package exercises: repository.go reads and writes the exercise_results table.
package exercises

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Save inserts a result. details is stored as JSONB.
func (r *Repository) Save(ctx context.Context, res Result) error {
	query := `
		INSERT INTO exercise_results
			(id, user_id, exercise_type, exercise_id, score, max_score, points_earned, grade, details, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		res.ID, res.UserID, res.Type, res.ExerciseID, res.Score, res.MaxScore,
		res.PointsEarned, res.Grade, res.Details, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save exercise result (user_id=%s): %w", res.UserID, err)
	}
	return nil
}

// List returns all results of a user, newest first.
func (r *Repository) List(ctx context.Context, userID string) ([]Result, error) {
	query := `
		SELECT id::text, user_id::text, exercise_type, exercise_id, score, max_score,
		       points_earned, grade, details, completed_at
		FROM exercise_results
		WHERE user_id = $1
		ORDER BY completed_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercise results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var res Result
		if err := rows.Scan(
			&res.ID, &res.UserID, &res.Type, &res.ExerciseID, &res.Score, &res.MaxScore,
			&res.PointsEarned, &res.Grade, &res.Details, &res.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan exercise result: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read exercise results: %w", err)
	}
	return out, nil
}
