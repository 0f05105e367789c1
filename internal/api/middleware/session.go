package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/api/httpx"
	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

// DeviceHeader identifies the browser of an anonymous session.
const DeviceHeader = "X-Device-ID"

// ChatLookup finds the Telegram chat linked to a user (0 = none).
type ChatLookup interface {
	TelegramChatID(ctx context.Context, userID string) (int64, error)
}

// Session resolves who is calling and prepares the notification targets:
// the response collector, the log, and the linked Telegram chat if any.
// chats and sender may be nil.
func Session(verifier *session.Verifier, chats ChatLookup, sender notify.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := verifier.Resolve(c.GetHeader("Authorization"), c.GetHeader(DeviceHeader))
		switch {
		case errors.Is(err, common.ErrInvalidToken):
			httpx.Fail(c, http.StatusUnauthorized, err.Error())
			return
		case errors.Is(err, common.ErrMissingDevice):
			httpx.Fail(c, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			httpx.Fail(c, http.StatusBadRequest, err.Error())
			return
		}

		collector := notify.NewCollector()
		sinks := []notify.Sink{collector, notify.Log{Fields: sess.Fields()}}

		if sess.Authenticated() && chats != nil && sender != nil {
			chatID, err := chats.TelegramChatID(c.Request.Context(), sess.UserID)
			if err != nil {
				log.WithFields(sess.Fields()).WithError(err).Warn("failed to look up telegram chat")
			}
			sinks = append(sinks, notify.ChatSink(sender, chatID))
		}

		httpx.Bind(c, sess, collector, notify.Multi(sinks...))
		c.Next()
	}
}
