// Package admin: handlers.go exposes the operator endpoints under /admin.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/httpx"
	"letrasamigas.es/progress-service/internal/common"
)

// TokenHeader carries the admin token.
const TokenHeader = "X-Admin-Token"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the admin routes, all behind RequireAdmin.
func (h *Handler) Register(g *gin.RouterGroup) {
	admin := g.Group("/admin", h.RequireAdmin)
	admin.POST("/reconcile", h.HandleReconcile)
	admin.POST("/grant", h.HandleGrant)
}

// RequireAdmin aborts unless X-Admin-Token matches ADMIN_TOKEN_HASH.
func (h *Handler) RequireAdmin(c *gin.Context) {
	err := h.service.Authorize(c.Request.Context(), c.ClientIP(), c.GetHeader(TokenHeader))
	switch {
	case err == nil:
		c.Next()
	case errors.Is(err, common.ErrAdminDisabled):
		httpx.Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrTooManyAttempts):
		httpx.Fail(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, common.ErrWrongAdminToken):
		httpx.Fail(c, http.StatusForbidden, err.Error())
	default:
		log.WithError(err).Error("admin authorization failed")
		httpx.Fail(c, http.StatusInternalServerError, "authorization failed")
	}
}

// HandleReconcile reconciles every profile against the ledger.
func (h *Handler) HandleReconcile(c *gin.Context) {
	checked, corrected, err := h.service.ReconcileAll(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("bulk reconciliation failed")
		httpx.Fail(c, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"checked": checked, "corrected": corrected})
}

type grantRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason"`
}

// HandleGrant awards points to a user.
func (h *Handler) HandleGrant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "user_id must be a UUID")
		return
	}

	res, err := h.service.Grant(c.Request.Context(), req.UserID, req.Amount, req.Reason)
	if errors.Is(err, common.ErrInvalidAmount) {
		httpx.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.WithError(err).WithField("user_id", req.UserID).Error("admin grant failed")
		httpx.Fail(c, http.StatusInternalServerError, "grant failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"grant": res})
}
