// Package exercises: service.go runs the completion flow:
// score → store the result → grant points → evaluate the streak.
package exercises

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/features/streak"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

// Completion is the outcome of one finished exercise.
type Completion struct {
	Scored Scored             `json:"scored"`
	Saved  bool               `json:"saved"`
	Grant  points.GrantResult `json:"grant"`
	Streak streak.Outcome     `json:"streak"`
	Failed bool               `json:"failed"`
}

// Service handles finished exercises.
type Service struct {
	store   Store
	points  *points.Service
	streaks *streak.Service
	now     func() time.Time
}

// NewService creates the exercise service.
func NewService(store Store, pts *points.Service, streaks *streak.Service) *Service {
	return &Service{store: store, points: pts, streaks: streaks, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Complete processes a finished exercise.
//
// Steps:
//  1. Score the submission (invalid input is returned as an error)
//  2. Authenticated: store the result; if that fails, report it and stop
//  3. Grant the earned points through the ledger
//  4. Evaluate the streak
//
// Steps 2–4 report problems through sink; the call itself does not fail.
func (s *Service) Complete(ctx context.Context, sess session.Session, sub Submission, sink notify.Sink) (Completion, error) {
	scored, err := Score(sub)
	if err != nil {
		return Completion{}, err
	}
	if sink == nil {
		sink = notify.Discard
	}

	out := Completion{Scored: scored}
	logger := log.WithFields(sess.Fields()).WithField("exercise_type", sub.Type)

	if sess.Authenticated() {
		res := Result{
			ID:           uuid.NewString(),
			UserID:       sess.UserID,
			Type:         sub.Type,
			ExerciseID:   exerciseID(sub),
			Score:        scored.Score,
			MaxScore:     scored.MaxScore,
			PointsEarned: scored.Points,
			Grade:        scored.Grade,
			Details:      details(sub, scored),
			CompletedAt:  s.now(),
		}
		if err := s.store.Save(ctx, res); err != nil {
			logger.WithError(err).Error("failed to save exercise result")
			sink.Notify(ctx, notify.Notification{
				Title:       "Error",
				Description: "No se pudo guardar tu resultado",
				Variant:     notify.VariantDestructive,
			})
			out.Failed = true
			return out, nil
		}
		out.Saved = true
	}

	sink.Notify(ctx, completionNotice(sub, scored))

	if scored.Points > 0 {
		reason := fmt.Sprintf("Ejercicio completado: %s", labels[sub.Type])
		grant, err := s.points.Grant(ctx, sess, scored.Points, reason, points.SourceExercise, sink)
		if err != nil {
			logger.WithError(err).Error("unexpected grant rejection")
		}
		out.Grant = grant
	}

	out.Streak = s.streaks.EvaluateAndPersist(ctx, sess, sink)

	logger.WithFields(log.Fields{
		"score":  scored.Score,
		"points": scored.Points,
		"streak": out.Streak.State.Current,
	}).Info("exercise completed")
	return out, nil
}

// Progress summarizes the results of a user.
func (s *Service) Progress(ctx context.Context, userID string) (Summary, error) {
	results, err := s.store.List(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(results), nil
}

func exerciseID(sub Submission) string {
	if sub.ExerciseID != "" {
		return sub.ExerciseID
	}
	if sub.Type == TypeReading {
		difficulty := sub.Difficulty
		if difficulty == "" {
			difficulty = DifficultyNormal
		}
		return "reading-" + difficulty
	}
	return sub.Type + "-1"
}

func details(sub Submission, scored Scored) map[string]interface{} {
	if sub.Type == TypeReading {
		return map[string]interface{}{
			"difficulty":         sub.Difficulty,
			"words_per_minute":   scored.WordsPerMinute,
			"time_spent_seconds": int(sub.DurationSeconds + 0.5),
			"total_words":        scored.Words,
		}
	}
	return map[string]interface{}{
		"words_attempted":         sub.Total,
		"words_correct":           sub.Correct,
		"completion_time_seconds": int(sub.DurationSeconds + 0.5),
	}
}

func completionNotice(sub Submission, scored Scored) notify.Notification {
	if sub.Type == TypeReading {
		return notify.Notification{
			Title:       "Ejercicio completado",
			Description: fmt.Sprintf("¡Bien hecho! Leíste a %d palabras por minuto.", scored.WordsPerMinute),
			Variant:     notify.VariantDefault,
		}
	}
	return notify.Notification{
		Title:       "Progreso guardado",
		Description: "Tu resultado ha sido guardado.",
		Variant:     notify.VariantDefault,
	}
}
