package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/session"
)

const (
	testToken = "correct horse battery staple"
	testUser  = "5b0b7d3e-8f7a-4c43-9d0f-4f1c2b6a9e10"
)

func newTestService(t *testing.T) (*Service, *points.MemoryStore) {
	t.Helper()
	hash, err := HashToken(testToken)
	if err != nil {
		t.Fatalf("HashToken returned error: %v", err)
	}
	ledger := points.NewMemoryStore()
	pts := points.NewService(ledger, points.NewMemoryStore(), ledger)
	return NewService(NewMemoryAttempts(), pts, &config.Config{AdminTokenHash: hash}), ledger
}

func TestVerifyArgon2id(t *testing.T) {
	hash, err := HashToken(testToken)
	if err != nil {
		t.Fatalf("HashToken returned error: %v", err)
	}

	tests := []struct {
		name  string
		token string
		hash  string
		want  bool
	}{
		{name: "match", token: testToken, hash: hash, want: true},
		{name: "wrong token", token: "wrong", hash: hash, want: false},
		{name: "malformed hash", token: testToken, hash: "$argon2id$broken", want: false},
		{name: "bad base64", token: testToken, hash: "$argon2id$v=19$m=65536,t=3,p=2$!!!$!!!", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verifyArgon2id(tt.token, tt.hash); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAuthorizeLockout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if err := svc.Authorize(ctx, "10.0.0.1", testToken); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	for i := 0; i < maxFailures; i++ {
		if err := svc.Authorize(ctx, "10.0.0.2", "guess"); !errors.Is(err, common.ErrWrongAdminToken) {
			t.Fatalf("attempt %d: expected ErrWrongAdminToken, got %v", i+1, err)
		}
	}
	if err := svc.Authorize(ctx, "10.0.0.2", testToken); !errors.Is(err, common.ErrTooManyAttempts) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if err := svc.Authorize(ctx, "10.0.0.1", testToken); err != nil {
		t.Fatalf("other clients must not be locked, got %v", err)
	}
}

func TestAuthorizeDisabled(t *testing.T) {
	svc := NewService(NewMemoryAttempts(), nil, &config.Config{})
	if err := svc.Authorize(context.Background(), "10.0.0.1", testToken); !errors.Is(err, common.ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}

func TestReconcileEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, ledger := newTestService(t)

	_, _ = svc.points.Grant(context.Background(), session.User(testUser), 40, "", points.SourceExercise, nil)
	ledger.SetTotal(testUser, 1000)

	r := gin.New()
	NewHandler(svc).Register(r.Group("/api/v1"))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "missing token", token: "", wantStatus: http.StatusForbidden},
		{name: "valid token", token: testToken, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reconcile", nil)
			if tt.token != "" {
				req.Header.Set(TokenHeader, tt.token)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	if total, _ := ledger.TotalPoints(context.Background(), testUser); total != 40 {
		t.Fatalf("expected total corrected to 40, got %d", total)
	}
}

func TestGrantEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, ledger := newTestService(t)

	r := gin.New()
	NewHandler(svc).Register(r.Group("/api/v1"))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid", body: `{"user_id": "` + testUser + `", "amount": 25}`, wantStatus: http.StatusOK},
		{name: "not a uuid", body: `{"user_id": "bob", "amount": 25}`, wantStatus: http.StatusBadRequest},
		{name: "negative", body: `{"user_id": "` + testUser + `", "amount": -1}`, wantStatus: http.StatusBadRequest},
		{name: "above max grant", body: `{"user_id": "` + testUser + `", "amount": 10001}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/grant", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(TokenHeader, testToken)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}

	history, _ := ledger.History(context.Background(), testUser, 5)
	if len(history) != 1 || history[0].Source != points.SourceAdmin {
		t.Fatalf("unexpected ledger: %#v", history)
	}
}
