// Package jobs runs the background tasks (cron).
// scheduler.go sets the schedule: hourly streak reminders and the nightly
// points reconciliation.
package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/notify"
)

// Reminders sends "don't lose your streak" messages. Implemented by streak.Service.
type Reminders interface {
	SendReminders(ctx context.Context, sender notify.Sender) error
}

// Reconciler recomputes stored point totals. Implemented by points.Service.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (checked, corrected int, err error)
}

// Scheduler runs the background jobs.
type Scheduler struct {
	cron       *cron.Cron
	cfg        *config.Config
	reminders  Reminders
	reconciler Reconciler
	sender     notify.Sender // nil = reminders are skipped
}

// NewScheduler creates the scheduler in the streak time zone (APP_TIMEZONE).
func NewScheduler(cfg *config.Config, reminders Reminders, reconciler Reconciler, sender notify.Sender) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(cfg.Location())),
		cfg:        cfg,
		reminders:  reminders,
		reconciler: reconciler,
		sender:     sender,
	}
}

// Start registers all jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.remindersEnabled() {
		if _, err := s.cron.AddFunc("0 * * * *", func() { s.RunReminders(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule reminders: %w", err)
		}
	} else {
		log.Info("streak reminders disabled")
	}

	if s.reconciler != nil {
		if _, err := s.cron.AddFunc(s.cfg.ReconcileCron, func() { s.RunReconcile(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule reconciliation: %w", err)
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"timezone": s.cfg.AppTimezone,
		"jobs":     len(s.cron.Entries()),
	}).Info("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) remindersEnabled() bool {
	return s.cfg.FeatureRemindersEnabled && s.reminders != nil && s.sender != nil
}

// RunReminders is the hourly reminder job.
func (s *Scheduler) RunReminders(ctx context.Context) {
	if !s.remindersEnabled() {
		return
	}
	log.Debug("[CRON] checking streak reminders")
	if err := s.reminders.SendReminders(ctx, s.sender); err != nil {
		log.WithError(err).Error("[CRON] streak reminders failed")
	}
}

// RunReconcile is the nightly reconciliation job.
func (s *Scheduler) RunReconcile(ctx context.Context) {
	if s.reconciler == nil {
		return
	}
	log.Info("[CRON] reconciling point totals")
	checked, corrected, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] reconciliation failed")
		return
	}
	log.WithFields(log.Fields{
		"checked":   checked,
		"corrected": corrected,
	}).Info("[CRON] reconciliation finished")
}
