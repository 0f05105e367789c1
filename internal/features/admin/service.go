// Package admin: service.go checks the admin token and runs operator actions.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/session"
)

// Service runs the admin side.
type Service struct {
	attempts AttemptStore
	points   *points.Service
	cfg      *config.Config
	now      func() time.Time
}

// NewService creates the admin service.
func NewService(attempts AttemptStore, pts *points.Service, cfg *config.Config) *Service {
	return &Service{attempts: attempts, points: pts, cfg: cfg, now: time.Now}
}

// Authorize checks an admin token presented by client.
// 3 failed attempts within an hour lock the client out for that hour.
func (s *Service) Authorize(ctx context.Context, client, token string) error {
	if s.cfg.AdminTokenHash == "" {
		return common.ErrAdminDisabled
	}

	failures, err := s.attempts.RecentFailures(ctx, client, s.now().Add(-lockout))
	if err != nil {
		return err
	}
	if failures >= maxFailures {
		return common.ErrTooManyAttempts
	}

	match := token != "" && verifyArgon2id(token, s.cfg.AdminTokenHash)

	if err := s.attempts.LogAttempt(ctx, client, match); err != nil {
		log.WithError(err).Warn("failed to log admin attempt")
	}

	if !match {
		log.WithField("client", client).Warn("wrong admin token")
		return common.ErrWrongAdminToken
	}
	return nil
}

// ReconcileAll reconciles every profile against the ledger.
func (s *Service) ReconcileAll(ctx context.Context) (checked, corrected int, err error) {
	return s.points.ReconcileAll(ctx)
}

// Grant awards points to a user on behalf of an operator.
func (s *Service) Grant(ctx context.Context, userID string, amount int64, reason string) (points.GrantResult, error) {
	if reason == "" {
		reason = "Puntos otorgados por el equipo"
	}
	res, err := s.points.Grant(ctx, session.User(userID), amount, reason, points.SourceAdmin, nil)
	if err != nil {
		return res, err
	}
	if res.Failed {
		return res, fmt.Errorf("grant to %s failed", userID)
	}
	return res, nil
}

// --- Crypto ---

// argon2id parameters for new hashes.
const (
	hashMemory      uint32 = 64 * 1024 // KiB
	hashIterations  uint32 = 3
	hashParallelism uint8  = 2
	hashKeyLength   uint32 = 32
	hashSaltLength         = 16
)

// HashToken returns the argon2id hash of token with a random salt,
// in the format expected by ADMIN_TOKEN_HASH.
func HashToken(token string) (string, error) {
	salt := make([]byte, hashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(token), salt, hashIterations, hashMemory, hashParallelism, hashKeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, hashMemory, hashIterations, hashParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2id checks a token against an argon2id hash.
// Format: $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func verifyArgon2id(token, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("malformed argon2id hash")
		return false
	}

	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("failed to parse argon2id parameters")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("failed to decode argon2id salt")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("failed to decode argon2id hash")
		return false
	}

	computedHash := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// constant time
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
