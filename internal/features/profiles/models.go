// Package profiles manages the per-child profile row: bootstrap on first sign-in,
// the time-spent accumulator and the Telegram chat link.
// models.go describes the profiles table.
package profiles

import "time"

// Profile is one row of the profiles table.
type Profile struct {
	ID               string     `json:"id"`                 // user UUID from the auth backend
	Username         string     `json:"username"`           // display name, may be empty
	DailyStreak      int        `json:"daily_streak"`       // current streak
	LongestStreak    int        `json:"longest_streak"`     // best streak
	LastStreakUpdate *time.Time `json:"last_streak_update"` // nil = never evaluated
	Points           int64      `json:"points"`             // running total
	TimeSpent        int        `json:"time_spent"`         // minutes
	LastActive       *time.Time `json:"last_active"`        // last activity tick
	TelegramChatID   *int64     `json:"telegram_chat_id"`   // linked chat, nil = none
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DisplayName returns the username or a neutral fallback.
func (p *Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return "Lector"
}

// Activity is the result of one time-spent tick.
type Activity struct {
	AddedMinutes int `json:"added_minutes"`
	TimeSpent    int `json:"time_spent"`
}
