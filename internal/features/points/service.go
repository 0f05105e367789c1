// Package points: service.go holds the ledger business logic: validation,
// grants with their notifications, reconciliation and history.
package points

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/metrics"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

// ErrNoLedger is returned by ledger operations when the service has no remote ledger.
var ErrNoLedger = errors.New("points ledger is not configured")

// Service manages points.
type Service struct {
	remote Store  // profile store, authenticated sessions
	local  Store  // device store, anonymous sessions
	ledger Ledger // may be nil in device-only setups
	now    func() time.Time
}

// NewService creates the points service.
func NewService(remote, local Store, ledger Ledger) *Service {
	return &Service{remote: remote, local: local, ledger: ledger, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) storeFor(sess session.Session) (Store, string) {
	if sess.Authenticated() {
		return s.remote, sess.UserID
	}
	return s.local, sess.DeviceID
}

// Grant adds amount points to the session's total.
//
// Invalid input (amount outside 1..MaxGrant, unknown source) is returned as an error with no notification.
// Storage failures are not returned: they are logged, reported through sink as an
// error notification and flagged with Failed. Nothing is retried.
func (s *Service) Grant(ctx context.Context, sess session.Session, amount int64, reason, source string, sink notify.Sink) (GrantResult, error) {
	if amount <= 0 || amount > MaxGrant {
		return GrantResult{}, common.ErrInvalidAmount
	}
	if !ValidSource(source) {
		return GrantResult{}, fmt.Errorf("unknown points source %q", source)
	}
	if sink == nil {
		sink = notify.Discard
	}

	store, owner := s.storeFor(sess)
	entry := Entry{
		ID:        uuid.NewString(),
		UserID:    sess.UserID,
		Amount:    amount,
		Reason:    reason,
		Source:    source,
		CreatedAt: s.now(),
	}

	total, err := store.AddPoints(ctx, owner, entry)
	if err != nil {
		metrics.PointsGrantFailures.WithLabelValues(sess.Backend()).Inc()
		log.WithFields(sess.Fields()).WithError(err).WithField("amount", amount).Error("failed to grant points")
		sink.Notify(ctx, notify.Notification{
			Title:       "Error al añadir puntos",
			Description: "Ha ocurrido un problema. Inténtalo de nuevo más tarde.",
			Variant:     notify.VariantDestructive,
		})
		return GrantResult{Failed: true}, nil
	}

	metrics.PointsGranted.WithLabelValues(source, sess.Backend()).Add(float64(amount))
	log.WithFields(sess.Fields()).WithFields(log.Fields{
		"amount": amount,
		"source": source,
		"total":  total,
	}).Info("points granted")

	description := reason
	if description == "" {
		description = "Sigue practicando para ganar más."
	}
	sink.Notify(ctx, notify.Notification{
		Title:       fmt.Sprintf("¡Has ganado %s!", common.FormatPoints(amount)),
		Description: description,
		Variant:     notify.VariantDefault,
	})

	return GrantResult{Awarded: amount, Total: total}, nil
}

// Total returns the stored total of the session.
func (s *Service) Total(ctx context.Context, sess session.Session) (int64, error) {
	store, owner := s.storeFor(sess)
	return store.TotalPoints(ctx, owner)
}

// Reconcile recomputes the user's total from the ledger and fixes the stored value.
// Silent: corrections are logged, never notified.
func (s *Service) Reconcile(ctx context.Context, userID string) (Reconciliation, error) {
	if s.ledger == nil {
		return Reconciliation{}, ErrNoLedger
	}

	rec, err := s.ledger.ReconcileTotal(ctx, userID)
	if err != nil {
		metrics.Reconciliations.WithLabelValues("error").Inc()
		return Reconciliation{}, err
	}

	if rec.Corrected {
		metrics.Reconciliations.WithLabelValues("corrected").Inc()
		log.WithFields(log.Fields{
			"user_id":    userID,
			"stored":     rec.Stored,
			"recomputed": rec.Recomputed,
		}).Debug("points total corrected from ledger")
	} else {
		metrics.Reconciliations.WithLabelValues("ok").Inc()
	}
	return rec, nil
}

// ReconcileAll reconciles every profile. A failing profile is logged and skipped;
// the returned error only reports that the profile list could not be read.
func (s *Service) ReconcileAll(ctx context.Context) (checked, corrected int, err error) {
	if s.ledger == nil {
		return 0, 0, ErrNoLedger
	}

	ids, err := s.ledger.ProfileIDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return checked, corrected, ctx.Err()
		}
		rec, err := s.Reconcile(ctx, id)
		if err != nil {
			log.WithError(err).WithField("user_id", id).Warn("reconciliation failed")
			continue
		}
		checked++
		if rec.Corrected {
			corrected++
		}
	}

	log.WithFields(log.Fields{
		"checked":   checked,
		"corrected": corrected,
	}).Info("points reconciliation finished")
	return checked, corrected, nil
}

// History returns the most recent ledger entries of a user.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if s.ledger == nil {
		return nil, ErrNoLedger
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.ledger.History(ctx, userID, limit)
}
