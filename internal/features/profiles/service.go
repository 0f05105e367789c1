// Package profiles: service.go holds the profile business logic.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/common"
)

// Service manages profiles.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates the profile service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Ensure guarantees that the user has a profile row. Called on every sign-in.
func (s *Service) Ensure(ctx context.Context, userID, username string) error {
	if err := s.store.Ensure(ctx, userID, username); err != nil {
		return fmt.Errorf("failed to bootstrap profile: %w", err)
	}
	return nil
}

// Get returns the profile of the user.
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.store.Get(ctx, userID)
}

// maxTickMinutes caps what one activity tick can add. The client ticks every
// minute; a longer gap means the tab slept and the gap is not reading time.
const maxTickMinutes = 10

// StartActivity restarts the activity clock at now without adding time.
// Called on sign-in and session restore, so the time away is never counted.
func (s *Service) StartActivity(ctx context.Context, userID string) (Activity, error) {
	total, err := s.store.AddTimeSpent(ctx, userID, 0, s.now())
	if err != nil {
		return Activity{}, err
	}
	return Activity{TimeSpent: total}, nil
}

// RecordActivity adds the whole minutes elapsed since the last activity tick
// to time_spent, at most maxTickMinutes. Nothing is written when less than a
// minute has passed, so frequent ticks do not lose the remainder. The first
// tick only starts the clock.
func (s *Service) RecordActivity(ctx context.Context, userID string) (Activity, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return Activity{}, err
	}

	now := s.now()
	if p.LastActive == nil {
		return s.StartActivity(ctx, userID)
	}

	minutes := int(now.Sub(*p.LastActive) / time.Minute)
	if minutes <= 0 {
		return Activity{TimeSpent: p.TimeSpent}, nil
	}
	minutes = min(minutes, maxTickMinutes)

	total, err := s.store.AddTimeSpent(ctx, userID, minutes, now)
	if err != nil {
		return Activity{}, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"minutes": minutes,
	}).Debug("time spent recorded")
	return Activity{AddedMinutes: minutes, TimeSpent: total}, nil
}

// LinkTelegram stores the chat that receives celebrations and reminders.
// chatID 0 unlinks.
func (s *Service) LinkTelegram(ctx context.Context, userID string, chatID int64) error {
	if err := s.store.SetTelegramChat(ctx, userID, chatID); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"chat_id": chatID,
	}).Info("telegram chat linked")
	return nil
}

// TelegramChatID returns the linked chat of the user, 0 when none.
// A missing profile is not an error here.
func (s *Service) TelegramChatID(ctx context.Context, userID string) (int64, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, common.ErrProfileNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if p.TelegramChatID == nil {
		return 0, nil
	}
	return *p.TelegramChatID, nil
}
