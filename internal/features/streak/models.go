// Package streak manages daily streaks: consecutive calendar days on which
// a child opened a session or finished an exercise.
// models.go describes the streak state and the evaluator decision.
package streak

import "time"

// State is the persisted streak of one owner (user profile or device).
type State struct {
	Current    int        `json:"current_streak"`   // consecutive days
	Longest    int        `json:"longest_streak"`   // personal best
	LastUpdate *time.Time `json:"last_update_date"` // nil = never evaluated
}

// DecisionReason explains why the evaluator decided what it did.
type DecisionReason string

const (
	ReasonFirstVisit  DecisionReason = "first_visit"
	ReasonSameDay     DecisionReason = "same_day"
	ReasonConsecutive DecisionReason = "consecutive"
	ReasonReset       DecisionReason = "reset"
	ReasonFuture      DecisionReason = "future"
)

// Decision is the evaluator output.
type Decision struct {
	ShouldUpdate bool           `json:"should_update"`
	NewStreak    int            `json:"new_streak"`
	Reason       DecisionReason `json:"reason"`
}

// Outcome is what the orchestrator reports back to the caller.
// On failure State is the last known good value and Failed is set.
type Outcome struct {
	State    State    `json:"state"`
	Decision Decision `json:"decision"`
	Updated  bool     `json:"updated"`
	Failed   bool     `json:"failed"`
}

// ReminderCandidate is a profile that may need a "don't lose your streak" message.
type ReminderCandidate struct {
	UserID         string
	Username       string
	CurrentStreak  int
	TelegramChatID int64
}
