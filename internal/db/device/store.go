// Package device: store.go implements the streak and points stores on Redis.
package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/features/streak"
)

// Key names inside a device namespace.
const (
	keyStreak        = "user-streak"
	keyStreakUpdated = "user-streak-updated"
	keyStreakLongest = "user-streak-longest"
	keyPoints        = "user-points"
)

// maxPointsRetries bounds optimistic retries of a points increment.
const maxPointsRetries = 5

// Store keeps device state in Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration // 0 = keys never expire
}

// NewStore creates a device store. ttl refreshes on every write.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(deviceID, name string) string {
	return "device:" + deviceID + ":" + name
}

// parseInt reads an integer value, 0 when absent or unparseable.
func parseInt(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseTime reads an RFC3339 timestamp, nil when absent or unparseable.
func parseTime(v interface{}) *time.Time {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

// LoadStreak implements streak.Store.
func (s *Store) LoadStreak(ctx context.Context, deviceID string) (streak.State, error) {
	vals, err := s.rdb.MGet(ctx,
		key(deviceID, keyStreak),
		key(deviceID, keyStreakLongest),
		key(deviceID, keyStreakUpdated),
	).Result()
	if err != nil {
		return streak.State{}, fmt.Errorf("failed to load device streak (device_id=%s): %w", deviceID, err)
	}

	state := streak.State{
		Current:    int(max(parseInt(vals[0]), 0)),
		Longest:    int(max(parseInt(vals[1]), 0)),
		LastUpdate: parseTime(vals[2]),
	}
	return state, nil
}

// SaveStreak implements streak.Store with WATCH/MULTI on the last update key.
func (s *Store) SaveStreak(ctx context.Context, deviceID string, expected *time.Time, next streak.State) error {
	updatedKey := key(deviceID, keyStreakUpdated)

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, updatedKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		var current *time.Time
		if err == nil {
			current = parseTime(raw)
		}
		if !sameInstant(current, expected) {
			return common.ErrStreakConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(deviceID, keyStreak), next.Current, s.ttl)
			pipe.Set(ctx, key(deviceID, keyStreakLongest), next.Longest, s.ttl)
			if next.LastUpdate != nil {
				pipe.Set(ctx, updatedKey, next.LastUpdate.UTC().Format(time.RFC3339Nano), s.ttl)
			} else {
				pipe.Del(ctx, updatedKey)
			}
			return nil
		})
		return err
	}

	err := s.rdb.Watch(ctx, txf, updatedKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, common.ErrStreakConflict):
		return common.ErrStreakConflict
	default:
		return fmt.Errorf("failed to save device streak (device_id=%s): %w", deviceID, err)
	}
}

// AddPoints implements points.Store. Devices keep no ledger, only the total.
func (s *Store) AddPoints(ctx context.Context, deviceID string, entry points.Entry) (int64, error) {
	pointsKey := key(deviceID, keyPoints)

	var total int64
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, pointsKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		total, err = points.AddTotal(parseInt(raw), entry.Amount)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, pointsKey, total, s.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxPointsRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, pointsKey)
		if err == nil {
			return total, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, fmt.Errorf("failed to add device points (device_id=%s): %w", deviceID, err)
	}
	return 0, fmt.Errorf("failed to add device points (device_id=%s): too much contention", deviceID)
}

// TotalPoints implements points.Store.
func (s *Store) TotalPoints(ctx context.Context, deviceID string) (int64, error) {
	raw, err := s.rdb.Get(ctx, key(deviceID, keyPoints)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read device points (device_id=%s): %w", deviceID, err)
	}
	return parseInt(raw), nil
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
