// Package notify carries human-readable outcomes (toasts) from the services
// to whoever shows them: the HTTP response, the log, a linked Telegram chat.
package notify

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"letrasamigas.es/progress-service/internal/metrics"
)

// Variant mirrors the toast variants of the web client.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is one user-visible message.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Variant     Variant `json:"variant"`
}

// IsError reports whether the notification reports a failure.
func (n Notification) IsError() bool { return n.Variant == VariantDestructive }

// Sink receives notifications. Implementations must not block for long
// and must not fail the caller: delivery problems are logged inside.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops everything.
var Discard Sink = SinkFunc(func(context.Context, Notification) {})

// Collector keeps notifications of one request so they can be returned to the client.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Notify(_ context.Context, n Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
	metrics.Notifications.WithLabelValues("response", string(n.Variant)).Inc()
}

// Items returns a copy of the collected notifications (never nil, so it encodes as []).
func (c *Collector) Items() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

type multi []Sink

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		s.Notify(ctx, n)
	}
}

// Multi fans a notification out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Log writes notifications to the application log.
type Log struct {
	Fields log.Fields
}

func (l Log) Notify(_ context.Context, n Notification) {
	entry := log.WithFields(l.Fields).WithField("title", n.Title)
	if n.IsError() {
		entry.Warn("error notification")
		return
	}
	entry.Debug("notification")
}
