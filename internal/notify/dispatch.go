package notify

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultSendTimeout bounds one background send.
const DefaultSendTimeout = 10 * time.Second

// Dispatcher is a Sender that hands each message to a goroutine and returns at once.
// The send keeps the caller's values but not its cancellation, so a finished HTTP
// request does not abort delivery. Each send is bounded by timeout.
type Dispatcher struct {
	next    Sender
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher wraps next. A non-positive timeout means DefaultSendTimeout.
func NewDispatcher(next Sender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{next: next, timeout: timeout}
}

// SendText queues text for chatID and always returns nil. Failures are logged.
func (d *Dispatcher) SendText(ctx context.Context, chatID int64, text string) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.next.SendText(sendCtx, chatID, text); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Warn("telegram notification failed")
		}
	}()
	return nil
}

// Wait blocks until every queued send has finished or timed out.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
