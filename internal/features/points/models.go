// Package points manages the points ledger: grants, the stored running total
// and its reconciliation against the immutable ledger entries.
// models.go describes ledger entries and operation results.
package points

import (
	"math"
	"time"

	"letrasamigas.es/progress-service/internal/common"
)

// Entry is one immutable ledger row.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`     // always positive
	Reason    string    `json:"reason"`     // shown to the child
	Source    string    `json:"source"`     // exercise, review, admin
	CreatedAt time.Time `json:"created_at"`
}

// GrantResult is what a grant reports back. On failure Total is zero and Failed is set.
type GrantResult struct {
	Awarded int64 `json:"awarded"`
	Total   int64 `json:"total"`
	Failed  bool  `json:"failed"`
}

// Reconciliation compares the stored total with the ledger sum.
type Reconciliation struct {
	Stored     int64 `json:"stored"`
	Recomputed int64 `json:"recomputed"`
	Corrected  bool  `json:"corrected"`
}

// Sources of points.
const (
	SourceExercise = "exercise" // finished exercise
	SourceReview   = "review"   // community review
	SourceAdmin    = "admin"    // manual grant
)

// MaxGrant bounds a single grant.
const MaxGrant int64 = 10_000

// AddTotal returns total+amount, or common.ErrPointsOverflow when that leaves int64.
func AddTotal(total, amount int64) (int64, error) {
	if amount > 0 && total > math.MaxInt64-amount {
		return total, common.ErrPointsOverflow
	}
	return total + amount, nil
}

// ValidSource reports whether s is a known source.
func ValidSource(s string) bool {
	switch s {
	case SourceExercise, SourceReview, SourceAdmin:
		return true
	}
	return false
}
