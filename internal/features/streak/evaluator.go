// Package streak: evaluator.go holds the pure streak decision.
package streak

import (
	"time"

	"letrasamigas.es/progress-service/internal/common"
)

// Evaluate decides the new streak from the last update and today.
// Only calendar days in loc matter; time of day is ignored.
//
//	last == nil        → update, 1 (first visit)
//	last is today      → no update
//	last is yesterday  → update, previous+1
//	last is older      → update, 1
//	last is in future  → no update, previous kept
func Evaluate(last *time.Time, today time.Time, previous int, loc *time.Location) Decision {
	if previous < 0 {
		previous = 0
	}

	if last == nil {
		return Decision{ShouldUpdate: true, NewStreak: 1, Reason: ReasonFirstVisit}
	}

	lastDay := common.DateOnly(*last, loc)

	switch {
	case common.SameDay(*last, today, loc):
		return Decision{ShouldUpdate: false, NewStreak: previous, Reason: ReasonSameDay}
	case lastDay.After(common.DateOnly(today, loc)):
		return Decision{ShouldUpdate: false, NewStreak: previous, Reason: ReasonFuture}
	case lastDay.Equal(common.Yesterday(today, loc)):
		return Decision{ShouldUpdate: true, NewStreak: previous + 1, Reason: ReasonConsecutive}
	default:
		return Decision{ShouldUpdate: true, NewStreak: 1, Reason: ReasonReset}
	}
}
