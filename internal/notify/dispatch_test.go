package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type blockingSender struct {
	release chan struct{}

	mu      sync.Mutex
	sent    []string
	ctxErrs []error
}

func (b *blockingSender) SendText(ctx context.Context, _ int64, text string) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	if ctx.Err() != nil {
		return ctx.Err()
	}
	b.sent = append(b.sent, text)
	return nil
}

func TestDispatcherReturnsBeforeSlowSend(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	d := NewDispatcher(sender, time.Minute)
	sink := ChatSink(d, 42)

	done := make(chan struct{})
	go func() {
		sink.Notify(context.Background(), Notification{Title: "¡Racha de 3 días!", Variant: VariantDefault})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on the chat send")
	}

	close(sender.release)
	d.Wait()

	if len(sender.sent) != 1 || sender.sent[0] != "¡Racha de 3 días!" {
		t.Fatalf("unexpected sends: %#v", sender.sent)
	}
}

func TestDispatcherOutlivesRequestContext(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	close(sender.release)
	d := NewDispatcher(sender, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.SendText(ctx, 1, "hola"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Wait()

	if len(sender.ctxErrs) != 1 || sender.ctxErrs[0] != nil {
		t.Fatalf("send saw a cancelled context: %#v", sender.ctxErrs)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected the message to be sent, got %#v", sender.sent)
	}
}

func TestDispatcherBoundsEachSend(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	d := NewDispatcher(sender, 20*time.Millisecond)

	start := time.Now()
	_ = d.SendText(context.Background(), 1, "hola")
	d.Wait()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("send was not bounded, took %s", elapsed)
	}
	if len(sender.ctxErrs) != 1 || !errors.Is(sender.ctxErrs[0], context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %#v", sender.ctxErrs)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing sent, got %#v", sender.sent)
	}
}
