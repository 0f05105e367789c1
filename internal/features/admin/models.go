// Package admin guards the operator endpoints with an argon2id-hashed token
// and runs bulk maintenance such as ledger reconciliation.
// models.go describes login attempts.
package admin

import "time"

// LoginAttempt is one admin token check, kept for brute-force protection.
type LoginAttempt struct {
	ID          int64     `db:"id"`
	Client      string    `db:"client"` // client IP
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// Brute-force protection: maxFailures failed attempts within lockout lock the client.
const (
	maxFailures = 3
	lockout     = time.Hour
)
