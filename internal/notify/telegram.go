// Package notify: telegram.go delivers notifications and reminders to linked Telegram chats.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"letrasamigas.es/progress-service/internal/metrics"
)

// Sender sends a plain text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Telegram sends messages through the Bot API, throttled below Telegram's global limit.
type Telegram struct {
	bot     *telego.Bot
	limiter *rate.Limiter
}

// NewTelegram creates the bot client. perSecond caps outbound messages.
func NewTelegram(token string, perSecond float64) (*Telegram, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Telegram{
		bot:     bot,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// Username returns the bot username, used once at startup to confirm the token.
func (t *Telegram) Username(ctx context.Context) (string, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return "", err
	}
	return me.Username, nil
}

// SendText waits for the limiter and sends text to chatID.
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}

// FormatText renders a notification as a chat message.
func FormatText(n Notification) string {
	if n.Description == "" {
		return n.Title
	}
	return n.Title + "\n" + n.Description
}

type chatSink struct {
	sender Sender
	chatID int64
}

// ChatSink forwards celebratory notifications to chatID. Error toasts stay in the app:
// a parent chat has nothing to do with a failed write.
func ChatSink(sender Sender, chatID int64) Sink {
	if sender == nil || chatID == 0 {
		return nil
	}
	return &chatSink{sender: sender, chatID: chatID}
}

func (s *chatSink) Notify(ctx context.Context, n Notification) {
	if n.IsError() || strings.TrimSpace(n.Title) == "" {
		return
	}
	if err := s.sender.SendText(ctx, s.chatID, FormatText(n)); err != nil {
		log.WithError(err).WithField("chat_id", s.chatID).Warn("telegram notification failed")
		return
	}
	metrics.Notifications.WithLabelValues("telegram", string(n.Variant)).Inc()
}
