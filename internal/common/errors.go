// Package common: errors.go defines the sentinel errors shared by all features.
// Handlers use them to tell input problems apart from storage failures.
package common

import "errors"

// Points ledger errors
var (
	// ErrInvalidAmount: a grant must be a positive number of points, at most points.MaxGrant
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrPointsOverflow: the grant would push the total past the int64 range
	ErrPointsOverflow = errors.New("points total would overflow")
)

// Streak errors
var (
	// ErrStreakConflict: the stored last update changed between read and write
	ErrStreakConflict = errors.New("streak was updated concurrently")
)

// Profile and session errors
var (
	// ErrProfileNotFound: no profile row for the user
	ErrProfileNotFound = errors.New("profile not found")
	// ErrUnauthorized: the operation needs an authenticated session
	ErrUnauthorized = errors.New("authentication required")
	// ErrMissingDevice: anonymous call without a device id
	ErrMissingDevice = errors.New("device id required for anonymous sessions")
	// ErrInvalidToken: bearer token failed verification
	ErrInvalidToken = errors.New("invalid session token")
)

// Exercise errors
var (
	// ErrInvalidScore: score outside 0..max or max not positive
	ErrInvalidScore = errors.New("score must be within 0..max_score and max_score > 0")
	// ErrUnknownExercise: exercise type is not one of the supported kinds
	ErrUnknownExercise = errors.New("unknown exercise type")
)

// Admin errors
var (
	// ErrAdminDisabled: ADMIN_TOKEN_HASH is not configured
	ErrAdminDisabled = errors.New("admin access is disabled")
	// ErrWrongAdminToken: the admin token does not match the hash
	ErrWrongAdminToken = errors.New("wrong admin token")
	// ErrTooManyAttempts: too many failed admin attempts from one client, locked for an hour
	ErrTooManyAttempts = errors.New("too many attempts, try again later")
)
