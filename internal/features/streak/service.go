// Package streak: service.go is the streak orchestrator: it loads the state from the
// store selected by the session, runs the evaluator, writes the decision back and
// reports the outcome through a notification sink.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/metrics"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

// ReminderStore is the part of the profile store used by the reminder job.
type ReminderStore interface {
	ReminderCandidates(ctx context.Context, minStreak int, yesterdayStart, todayStart, remindDay time.Time) ([]ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, userID string, day time.Time) error
}

// Service orchestrates streak evaluation.
type Service struct {
	remote    Store          // profile store, authenticated sessions
	local     Store          // device store, anonymous sessions
	reminders ReminderStore  // may be nil when reminders are not used
	cfg       *config.Config // configuration
	loc       *time.Location // calendar of the streak
	now       func() time.Time
}

// NewService creates the streak service.
func NewService(remote, local Store, reminders ReminderStore, cfg *config.Config) *Service {
	return &Service{
		remote:    remote,
		local:     local,
		reminders: reminders,
		cfg:       cfg,
		loc:       cfg.Location(),
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// storeFor picks the backend once per call: profile store for users, device store otherwise.
func (s *Service) storeFor(sess session.Session) (Store, string) {
	if sess.Authenticated() {
		return s.remote, sess.UserID
	}
	return s.local, sess.DeviceID
}

// EvaluateAndPersist runs one streak evaluation for the session.
//
// Algorithm:
//  1. Load the state from the session's store
//  2. Evaluate against today
//  3. If an update is due, write it with compare-and-swap on the previous last update
//  4. On a CAS conflict reload and evaluate once more (the other writer usually made it a same-day no-op)
//  5. Celebrate streaks longer than one day
//
// Errors never leave this method: they become an error notification and Failed=true.
func (s *Service) EvaluateAndPersist(ctx context.Context, sess session.Session, sink notify.Sink) Outcome {
	store, owner := s.storeFor(sess)
	logger := log.WithFields(sess.Fields())
	if sink == nil {
		sink = notify.Discard
	}

	var last State
	for attempt := 0; attempt < 2; attempt++ {
		state, err := store.LoadStreak(ctx, owner)
		if err != nil {
			return s.fail(ctx, sess, last, Decision{}, fmt.Errorf("load: %w", err), sink)
		}
		last = state

		now := s.now()
		decision := Evaluate(state.LastUpdate, now, state.Current, s.loc)
		metrics.StreakDecisions.WithLabelValues(string(decision.Reason)).Inc()

		if !decision.ShouldUpdate {
			if decision.Reason == ReasonFuture {
				logger.WithField("last_update", state.LastUpdate).Warn("streak last update is in the future, keeping it")
			}
			return Outcome{State: state, Decision: decision}
		}

		next := State{
			Current:    decision.NewStreak,
			Longest:    max(state.Longest, decision.NewStreak),
			LastUpdate: &now,
		}

		err = store.SaveStreak(ctx, owner, state.LastUpdate, next)
		if errors.Is(err, common.ErrStreakConflict) {
			metrics.StreakConflicts.WithLabelValues(sess.Backend()).Inc()
			logger.WithField("attempt", attempt+1).Debug("streak changed concurrently, re-evaluating")
			continue
		}
		if err != nil {
			return s.fail(ctx, sess, state, decision, fmt.Errorf("save: %w", err), sink)
		}

		logger.WithFields(log.Fields{
			"streak": next.Current,
			"reason": decision.Reason,
		}).Info("streak updated")

		if next.Current > 1 {
			sink.Notify(ctx, notify.Notification{
				Title:       fmt.Sprintf("¡Racha de %d %s!", next.Current, common.PluralizeDays(next.Current)),
				Description: fmt.Sprintf("Has mantenido tu racha durante %d %s. ¡Sigue así!", next.Current, common.PluralizeDays(next.Current)),
				Variant:     notify.VariantDefault,
			})
		}
		return Outcome{State: next, Decision: decision, Updated: true}
	}

	return s.fail(ctx, sess, last, Decision{}, common.ErrStreakConflict, sink)
}

// fail logs err, emits the generic error notification and keeps the last known good state.
func (s *Service) fail(ctx context.Context, sess session.Session, state State, d Decision, err error, sink notify.Sink) Outcome {
	metrics.StreakFailures.WithLabelValues(sess.Backend()).Inc()
	log.WithFields(sess.Fields()).WithError(err).Error("streak evaluation failed")
	sink.Notify(ctx, notify.Notification{
		Title:       "Error al actualizar la racha",
		Description: "Ha ocurrido un problema. Inténtalo de nuevo más tarde.",
		Variant:     notify.VariantDestructive,
	})
	if d.NewStreak == 0 {
		d.NewStreak = state.Current
	}
	d.ShouldUpdate = false
	return Outcome{State: state, Decision: d, Failed: true}
}

// Current returns the stored streak without evaluating it.
func (s *Service) Current(ctx context.Context, sess session.Session) (State, error) {
	store, owner := s.storeFor(sess)
	return store.LoadStreak(ctx, owner)
}

// SendReminders messages users whose streak will break tonight.
// Runs hourly; does nothing before STREAK_REMINDER_HOUR.
func (s *Service) SendReminders(ctx context.Context, sender notify.Sender) error {
	if s.reminders == nil || sender == nil {
		return nil
	}

	now := s.now().In(s.loc)
	if now.Hour() < s.cfg.StreakReminderHour {
		return nil
	}

	today := common.DateOnly(now, s.loc)
	yesterday := common.Yesterday(now, s.loc)

	candidates, err := s.reminders.ReminderCandidates(ctx, s.cfg.StreakReminderThreshold, yesterday, today, today)
	if err != nil {
		return err
	}

	sent := 0
	for _, c := range candidates {
		text := fmt.Sprintf("⚠️ ¡Tienes una racha de %d %s! Haz un ejercicio hoy para no perderla.",
			c.CurrentStreak, common.PluralizeDays(c.CurrentStreak))
		if err := sender.SendText(ctx, c.TelegramChatID, text); err != nil {
			log.WithError(err).WithField("user_id", c.UserID).Warn("failed to send streak reminder")
			continue
		}
		if err := s.reminders.MarkReminderSent(ctx, c.UserID, today); err != nil {
			log.WithError(err).WithField("user_id", c.UserID).Error("failed to mark reminder as sent")
			continue
		}
		sent++
	}

	log.WithFields(log.Fields{
		"candidates": len(candidates),
		"sent":       sent,
	}).Info("streak reminders processed")
	return nil
}
