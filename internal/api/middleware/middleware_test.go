package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("device:a"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
		now = now.Add(10 * time.Second)
	}

	ok, retryAfter := rl.Allow("device:a")
	if ok {
		t.Fatal("fourth request should be limited")
	}
	if retryAfter != 30*time.Second {
		t.Fatalf("expected retry after 30s, got %s", retryAfter)
	}
	if ok, _ := rl.Allow("device:b"); !ok {
		t.Fatal("keys are independent")
	}

	now = now.Add(31 * time.Second)
	if ok, _ := rl.Allow("device:a"); !ok {
		t.Fatal("window should have slid")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("device:idle")
	now = now.Add(2 * time.Minute)
	rl.sweep()

	if _, found := rl.hits["device:idle"]; found {
		t.Fatal("idle key should be dropped")
	}
}

func TestRequestLoggerKeepsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/teapot", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", w.Code)
	}
}
