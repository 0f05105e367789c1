// Package httpx holds the per-request plumbing shared by feature handlers:
// the resolved session, the notification sink and the JSON response shape.
package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"letrasamigas.es/progress-service/internal/common"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

const (
	sessionKey   = "progress.session"
	collectorKey = "progress.collector"
	sinkKey      = "progress.sink"
)

// Bind stores the request session and its notification targets in the gin context.
// collector gathers what goes back in the response; sink is where services write
// (usually the collector plus a linked chat).
func Bind(c *gin.Context, sess session.Session, collector *notify.Collector, sink notify.Sink) {
	c.Set(sessionKey, sess)
	c.Set(collectorKey, collector)
	c.Set(sinkKey, sink)
}

// Session returns the session bound to the request (zero value if none).
func Session(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{}
}

// Sink returns the request sink, creating a collector on first use.
func Sink(c *gin.Context) notify.Sink {
	if v, ok := c.Get(sinkKey); ok {
		if s, ok := v.(notify.Sink); ok && s != nil {
			return s
		}
	}
	collector := collectorOf(c)
	c.Set(sinkKey, notify.Sink(collector))
	return collector
}

func collectorOf(c *gin.Context) *notify.Collector {
	if v, ok := c.Get(collectorKey); ok {
		if col, ok := v.(*notify.Collector); ok && col != nil {
			return col
		}
	}
	col := notify.NewCollector()
	c.Set(collectorKey, col)
	return col
}

// Notifications returns what the services emitted during the request.
func Notifications(c *gin.Context) []notify.Notification {
	return collectorOf(c).Items()
}

// RequireUser aborts with 401 unless the request is authenticated.
func RequireUser(c *gin.Context) (session.Session, bool) {
	sess := Session(c)
	if !sess.Authenticated() {
		Fail(c, http.StatusUnauthorized, common.ErrUnauthorized.Error())
		return sess, false
	}
	return sess, true
}

// OK writes body with the collected notifications attached.
func OK(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["notifications"] = Notifications(c)
	c.JSON(http.StatusOK, body)
}

// Fail writes a JSON error and aborts the chain.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
