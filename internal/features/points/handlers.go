// Package points: handlers.go exposes the ledger over HTTP:
// total, grant, review reward, reconciliation and history.
package points

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/httpx"
	"letrasamigas.es/progress-service/internal/common"
)

// ReviewReason is the ledger reason of the community review reward.
const ReviewReason = "Has compartido tu experiencia con la comunidad"

// Handler serves points endpoints.
type Handler struct {
	service      *Service
	reviewReward int64
	loc          *time.Location
}

// NewHandler creates the points handler.
func NewHandler(service *Service, reviewReward int64, loc *time.Location) *Handler {
	return &Handler{service: service, reviewReward: reviewReward, loc: loc}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/points", h.HandleTotal)
	g.POST("/points/grant", h.HandleGrant)
	g.POST("/points/review", h.HandleReview)
	g.POST("/points/reconcile", h.HandleReconcile)
	g.GET("/points/history", h.HandleHistory)
}

// HandleTotal returns the stored total.
func (h *Handler) HandleTotal(c *gin.Context) {
	sess := httpx.Session(c)
	total, err := h.service.Total(c.Request.Context(), sess)
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to read points")
		httpx.Fail(c, http.StatusInternalServerError, "failed to read points")
		return
	}
	httpx.OK(c, gin.H{"points": total})
}

type grantRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// MaxClientGrant is the largest grant a client may request: the reward of a perfect exercise.
const MaxClientGrant int64 = 100

// HandleGrant adds points requested by the client. The client is not trusted:
// the only accepted source is exercise and the amount is capped at MaxClientGrant.
// Scored exercises go through /exercises/complete, reviews through /points/review
// and operator grants through /admin/grant.
//
//	POST /api/v1/points/grant {"amount": 35, "reason": "Dictado"} → {"grant": {...}, "notifications": [...]}
func (h *Handler) HandleGrant(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Source == "" {
		req.Source = SourceExercise
	}
	if req.Source != SourceExercise {
		httpx.Fail(c, http.StatusBadRequest, "invalid source")
		return
	}
	if req.Amount > MaxClientGrant {
		httpx.Fail(c, http.StatusBadRequest, common.ErrInvalidAmount.Error())
		return
	}
	h.grant(c, req.Amount, req.Reason, req.Source)
}

// HandleReview grants the fixed community review reward.
func (h *Handler) HandleReview(c *gin.Context) {
	h.grant(c, h.reviewReward, ReviewReason, SourceReview)
}

func (h *Handler) grant(c *gin.Context, amount int64, reason, source string) {
	res, err := h.service.Grant(c.Request.Context(), httpx.Session(c), amount, reason, source, httpx.Sink(c))
	if err != nil {
		httpx.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	httpx.OK(c, gin.H{"grant": res})
}

// HandleReconcile reconciles the caller's total against the ledger.
func (h *Handler) HandleReconcile(c *gin.Context) {
	sess, ok := httpx.RequireUser(c)
	if !ok {
		return
	}

	rec, err := h.service.Reconcile(c.Request.Context(), sess.UserID)
	if errors.Is(err, common.ErrProfileNotFound) {
		httpx.Fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("reconciliation failed")
		httpx.Fail(c, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	httpx.OK(c, gin.H{"reconciliation": rec})
}

type historyItem struct {
	Entry
	Line string `json:"line"`
}

// HandleHistory returns recent ledger entries with a display line each,
// e.g. "10/03/2024 17:45 | +35 puntos | Dictado".
func (h *Handler) HandleHistory(c *gin.Context) {
	sess, ok := httpx.RequireUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.service.History(c.Request.Context(), sess.UserID, limit)
	if err != nil {
		log.WithFields(sess.Fields()).WithError(err).Error("failed to read ledger")
		httpx.Fail(c, http.StatusInternalServerError, "failed to read history")
		return
	}

	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			Entry: e,
			Line: fmt.Sprintf("%s | %s | %s",
				common.FormatDateTime(e.CreatedAt, h.loc), common.FormatPointsAmount(e.Amount), e.Reason),
		})
	}
	httpx.OK(c, gin.H{"history": items})
}
