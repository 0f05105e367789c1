// Package exercises: handlers.go exposes the completion flow and the progress summary.
package exercises

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/httpx"
	"letrasamigas.es/progress-service/internal/common"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/exercises/complete", h.HandleComplete)
	g.GET("/exercises/progress", h.HandleProgress)
}

// HandleComplete scores a finished exercise and runs the completion flow.
//
//	POST /api/v1/exercises/complete {"exercise_type": "dictado", "correct": 7, "total": 10}
func (h *Handler) HandleComplete(c *gin.Context) {
	var sub Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	completion, err := h.service.Complete(c.Request.Context(), httpx.Session(c), sub, httpx.Sink(c))
	if errors.Is(err, common.ErrInvalidScore) || errors.Is(err, common.ErrUnknownExercise) {
		httpx.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.WithError(err).Error("exercise completion failed")
		httpx.Fail(c, http.StatusInternalServerError, "exercise completion failed")
		return
	}
	httpx.OK(c, gin.H{"completion": completion})
}

// HandleProgress returns the progress summary of the caller.
func (h *Handler) HandleProgress(c *gin.Context) {
	sess, ok := httpx.RequireUser(c)
	if !ok {
		return
	}

	summary, err := h.service.Progress(c.Request.Context(), sess.UserID)
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to summarize progress")
		httpx.Fail(c, http.StatusInternalServerError, "failed to read progress")
		return
	}
	httpx.OK(c, gin.H{"progress": summary})
}
