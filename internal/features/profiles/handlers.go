// Package profiles: handlers.go serves the session start trigger and the profile endpoints.
package profiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/httpx"
	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/features/streak"
)

// Handler serves profile endpoints.
type Handler struct {
	service *Service        // profiles
	streaks *streak.Service // session start trigger
	points  *points.Service // totals shown after sign-in
}

// NewHandler creates the profile handler.
func NewHandler(service *Service, streaks *streak.Service, pts *points.Service) *Handler {
	return &Handler{service: service, streaks: streaks, points: pts}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/session/start", h.HandleSessionStart)
	g.GET("/profile", h.HandleGet)
	g.POST("/profile/activity", h.HandleActivity)
	g.POST("/profile/telegram", h.HandleLinkTelegram)
}

type sessionStartRequest struct {
	Username string `json:"username"`
}

// HandleSessionStart is called by the client on sign-in and on session restore.
//
// Steps:
//  1. Authenticated: bootstrap the profile and restart the activity clock
//  2. Evaluate the streak (same method as the exercise completion trigger)
//  3. Return streak outcome, points total and notifications
//
// Bootstrap problems are logged; the streak still runs and reports its own failures.
func (h *Handler) HandleSessionStart(c *gin.Context) {
	ctx := c.Request.Context()
	sess := httpx.Session(c)
	logger := log.WithFields(sess.Fields())

	var req sessionStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if sess.Authenticated() {
		if err := h.service.Ensure(ctx, sess.UserID, req.Username); err != nil {
			logger.WithError(err).Error("profile bootstrap failed")
		} else if _, err := h.service.StartActivity(ctx, sess.UserID); err != nil {
			logger.WithError(err).Warn("failed to restart activity clock")
		}
	}

	outcome := h.streaks.EvaluateAndPersist(ctx, sess, httpx.Sink(c))

	body := gin.H{"streak": outcome}
	if total, err := h.points.Total(ctx, sess); err != nil {
		logger.WithError(err).Warn("failed to read points after session start")
	} else {
		body["points"] = total
	}
	httpx.OK(c, body)
}

// HandleGet returns the caller's profile.
func (h *Handler) HandleGet(c *gin.Context) {
	sess, ok := httpx.RequireUser(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), sess.UserID)
	if errors.Is(err, common.ErrProfileNotFound) {
		httpx.Fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to read profile")
		httpx.Fail(c, http.StatusInternalServerError, "failed to read profile")
		return
	}
	httpx.OK(c, gin.H{"profile": p, "display_name": p.DisplayName()})
}

// HandleActivity records a time-spent tick.
func (h *Handler) HandleActivity(c *gin.Context) {
	sess, ok := httpx.RequireUser(c)
	if !ok {
		return
	}

	activity, err := h.service.RecordActivity(c.Request.Context(), sess.UserID)
	if errors.Is(err, common.ErrProfileNotFound) {
		httpx.Fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to record activity")
		httpx.Fail(c, http.StatusInternalServerError, "failed to record activity")
		return
	}
	httpx.OK(c, gin.H{"activity": activity})
}

type linkTelegramRequest struct {
	ChatID int64 `json:"chat_id"`
}

// HandleLinkTelegram links or unlinks ({"chat_id": 0}) a Telegram chat.
func (h *Handler) HandleLinkTelegram(c *gin.Context) {
	sess, ok := httpx.RequireUser(c)
	if !ok {
		return
	}

	var req linkTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.service.LinkTelegram(c.Request.Context(), sess.UserID, req.ChatID)
	if errors.Is(err, common.ErrProfileNotFound) {
		httpx.Fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to link telegram chat")
		httpx.Fail(c, http.StatusInternalServerError, "failed to link telegram chat")
		return
	}
	httpx.OK(c, gin.H{"telegram_chat_id": req.ChatID})
}
