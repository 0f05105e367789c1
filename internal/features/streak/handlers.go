// Package streak: handlers.go exposes the streak over HTTP.
package streak

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/httpx"
)

// Handler serves streak endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates the streak handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/streak", h.HandleCurrent)
	g.POST("/streak/evaluate", h.HandleEvaluate)
}

// HandleCurrent returns the stored streak.
//
//	GET /api/v1/streak → {"streak": {"current_streak": 5, ...}}
func (h *Handler) HandleCurrent(c *gin.Context) {
	sess := httpx.Session(c)
	state, err := h.service.Current(c.Request.Context(), sess)
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to read streak")
		httpx.Fail(c, http.StatusInternalServerError, "failed to read streak")
		return
	}
	httpx.OK(c, gin.H{"streak": state})
}

// HandleEvaluate runs the orchestrator. Always 200: failures travel as notifications.
func (h *Handler) HandleEvaluate(c *gin.Context) {
	outcome := h.service.EvaluateAndPersist(c.Request.Context(), httpx.Session(c), httpx.Sink(c))
	httpx.OK(c, gin.H{"streak": outcome})
}
