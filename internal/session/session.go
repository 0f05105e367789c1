// Package session describes who is calling: an authenticated user of the
// managed auth backend, or an anonymous device.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/common"
)

// Session is the caller of one request. Exactly one of UserID / DeviceID drives storage:
// UserID when present (remote profile), DeviceID otherwise (device store).
type Session struct {
	UserID   string
	DeviceID string
}

// User returns an authenticated session.
func User(userID string) Session { return Session{UserID: userID} }

// Device returns an anonymous device session.
func Device(deviceID string) Session { return Session{DeviceID: deviceID} }

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool { return s.UserID != "" }

// Owner is a stable key for the session, e.g. "user:<uuid>" or "device:<id>".
func (s Session) Owner() string {
	if s.Authenticated() {
		return "user:" + s.UserID
	}
	return "device:" + s.DeviceID
}

// Backend names the storage strategy the session maps to ("remote" or "local").
func (s Session) Backend() string {
	if s.Authenticated() {
		return "remote"
	}
	return "local"
}

// Fields returns logrus fields identifying the session.
func (s Session) Fields() log.Fields {
	if s.Authenticated() {
		return log.Fields{"user_id": s.UserID}
	}
	return log.Fields{"device_id": s.DeviceID}
}

// Claims are the token claims the service reads. Subject carries the user UUID.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 session tokens issued by the auth backend.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates the token and returns its claims.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, common.ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", common.ErrInvalidToken)
	}
	return claims, nil
}

// Sign issues a token for userID. The auth backend normally does this;
// the service uses it for local tooling and tests.
func (v *Verifier) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Resolve builds the session of a request from its Authorization header and device id.
// A present but invalid bearer token is an error; no token falls back to the device.
func (v *Verifier) Resolve(authHeader, deviceID string) (Session, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return Session{}, common.ErrInvalidToken
		}
		claims, err := v.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			return Session{}, err
		}
		return User(claims.Subject), nil
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" || len(deviceID) > 128 {
		return Session{}, common.ErrMissingDevice
	}
	return Device(deviceID), nil
}
