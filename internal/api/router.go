// Package api assembles the HTTP surface: gin engine, middleware chain and
// the feature handlers under /api/v1.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/middleware"
	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

// Registrar is a feature handler that mounts its routes.
type Registrar interface {
	Register(g *gin.RouterGroup)
}

// Deps is what the router needs from the composition root.
type Deps struct {
	Config   *config.Config
	Verifier *session.Verifier
	Limiter  *middleware.RateLimiter
	Chats    middleware.ChatLookup // nil disables chat delivery
	Sender   notify.Sender         // nil disables chat delivery
	Health   func(ctx context.Context) error

	// Session-scoped feature handlers (streak, points, profiles, exercises).
	Features []Registrar
	// Operator handlers; they authenticate themselves.
	Admin Registrar
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(d.Config.CORSOrigins)))

	r.GET("/healthz", healthHandler(d.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	if d.Admin != nil {
		d.Admin.Register(v1)
	}

	scoped := v1.Group("")
	scoped.Use(middleware.Session(d.Verifier, d.Chats, d.Sender))
	if d.Limiter != nil {
		scoped.Use(middleware.RateLimit(d.Limiter))
	}
	for _, f := range d.Features {
		f.Register(scoped)
	}

	log.WithField("routes", len(r.Routes())).Debug("router ready")
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.DeviceHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.WithError(err).Warn("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
