package notify

import (
	"context"
	"errors"
	"testing"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func TestCollectorAndMulti(t *testing.T) {
	ctx := context.Background()
	c := NewCollector()

	if got := c.Items(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}

	sender := &fakeSender{}
	sink := Multi(c, nil, ChatSink(sender, 42), ChatSink(nil, 1))

	sink.Notify(ctx, Notification{Title: "¡Racha de 5 días!", Description: "Sigue así", Variant: VariantDefault})
	sink.Notify(ctx, Notification{Title: "Error al añadir puntos", Variant: VariantDestructive})

	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 collected notifications, got %d", len(items))
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected only the celebration to reach telegram, got %d", len(sender.sent))
	}
	if sender.sent[0] != "¡Racha de 5 días!\nSigue así" {
		t.Fatalf("unexpected telegram text: %q", sender.sent[0])
	}
}

func TestChatSinkSwallowsSendErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	sink := ChatSink(sender, 7)
	sink.Notify(context.Background(), Notification{Title: "hola", Variant: VariantDefault})
}

func TestChatSinkWithoutChat(t *testing.T) {
	if ChatSink(&fakeSender{}, 0) != nil {
		t.Fatal("expected nil sink for chat 0")
	}
}
