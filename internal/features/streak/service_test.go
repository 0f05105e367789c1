package streak

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		AppTimezone:             "UTC",
		StreakReminderThreshold: 3,
		StreakReminderHour:      18,
	}
}

func newTestService(remote, local Store, now time.Time) *Service {
	svc := NewService(remote, local, nil, testConfig())
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestEvaluateAndPersistScenarios(t *testing.T) {
	ctx := context.Background()
	today := day(2024, 3, 10, 10)

	tests := []struct {
		name          string
		seed          *State
		wantStreak    int
		wantUpdated   bool
		wantNotified  bool
		wantNotifText string
	}{
		{name: "no prior state", seed: nil, wantStreak: 1, wantUpdated: true},
		{name: "consecutive day", seed: &State{Current: 4, Longest: 4, LastUpdate: ptr(day(2024, 3, 9, 20))}, wantStreak: 5, wantUpdated: true, wantNotified: true, wantNotifText: "¡Racha de 5 días!"},
		{name: "gap resets", seed: &State{Current: 9, Longest: 9, LastUpdate: ptr(day(2024, 3, 1, 20))}, wantStreak: 1, wantUpdated: true},
		{name: "same day no-op", seed: &State{Current: 3, Longest: 3, LastUpdate: ptr(day(2024, 3, 10, 7))}, wantStreak: 3, wantUpdated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := NewMemoryStore()
			if tt.seed != nil {
				if err := remote.SaveStreak(ctx, "u1", nil, *tt.seed); err != nil {
					t.Fatalf("seed failed: %v", err)
				}
			}
			svc := newTestService(remote, NewMemoryStore(), today)
			collector := notify.NewCollector()

			out := svc.EvaluateAndPersist(ctx, session.User("u1"), collector)

			if out.Failed {
				t.Fatal("unexpected failure")
			}
			if out.Updated != tt.wantUpdated {
				t.Fatalf("expected updated=%v, got %v", tt.wantUpdated, out.Updated)
			}
			if out.State.Current != tt.wantStreak {
				t.Fatalf("expected streak %d, got %d", tt.wantStreak, out.State.Current)
			}

			stored, _ := remote.LoadStreak(ctx, "u1")
			if stored.Current != tt.wantStreak {
				t.Fatalf("expected stored streak %d, got %d", tt.wantStreak, stored.Current)
			}

			items := collector.Items()
			if tt.wantNotified {
				if len(items) != 1 || items[0].Title != tt.wantNotifText {
					t.Fatalf("unexpected notifications: %#v", items)
				}
			} else if len(items) != 0 {
				t.Fatalf("expected no notifications, got %#v", items)
			}
		})
	}
}

func TestEvaluateAndPersistIsIdempotentWithinDay(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryStore()
	_ = remote.SaveStreak(ctx, "u1", nil, State{Current: 1, Longest: 1, LastUpdate: ptr(day(2024, 3, 9, 9))})

	svc := newTestService(remote, NewMemoryStore(), day(2024, 3, 10, 9))
	collector := notify.NewCollector()

	first := svc.EvaluateAndPersist(ctx, session.User("u1"), collector)
	second := svc.EvaluateAndPersist(ctx, session.User("u1"), collector)

	if !first.Updated || first.State.Current != 2 {
		t.Fatalf("unexpected first outcome: %+v", first)
	}
	if second.Updated || second.State.Current != 2 || second.Decision.Reason != ReasonSameDay {
		t.Fatalf("unexpected second outcome: %+v", second)
	}
	if n := len(collector.Items()); n != 1 {
		t.Fatalf("expected a single notification, got %d", n)
	}
}

func TestEvaluateAndPersistUsesDeviceStoreForAnonymous(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryStore()
	local := NewMemoryStore()
	svc := newTestService(remote, local, day(2024, 3, 10, 9))

	out := svc.EvaluateAndPersist(ctx, session.Device("tablet-1"), nil)
	if !out.Updated || out.State.Current != 1 {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	if s, _ := local.LoadStreak(ctx, "tablet-1"); s.Current != 1 {
		t.Fatalf("expected device store to hold the streak, got %+v", s)
	}
	if s, _ := remote.LoadStreak(ctx, "tablet-1"); s.Current != 0 {
		t.Fatalf("remote store must stay untouched, got %+v", s)
	}
}

// racingStore lets another writer win the first save.
type racingStore struct {
	*MemoryStore
	once sync.Once
	win  State
}

func (r *racingStore) SaveStreak(ctx context.Context, owner string, expected *time.Time, next State) error {
	r.once.Do(func() {
		_ = r.MemoryStore.SaveStreak(ctx, owner, expected, r.win)
	})
	return r.MemoryStore.SaveStreak(ctx, owner, expected, next)
}

func TestEvaluateAndPersistReevaluatesOnConflict(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 3, 10, 9)
	mem := NewMemoryStore()
	_ = mem.SaveStreak(ctx, "u1", nil, State{Current: 4, Longest: 4, LastUpdate: ptr(day(2024, 3, 9, 9))})

	store := &racingStore{MemoryStore: mem, win: State{Current: 5, Longest: 5, LastUpdate: ptr(now.Add(-time.Minute))}}
	svc := newTestService(store, NewMemoryStore(), now)
	collector := notify.NewCollector()

	out := svc.EvaluateAndPersist(ctx, session.User("u1"), collector)

	if out.Failed {
		t.Fatal("conflict must not be reported as a failure")
	}
	if out.Updated {
		t.Fatal("the losing writer must not update")
	}
	if out.State.Current != 5 {
		t.Fatalf("expected streak 5 from the winning writer, got %d", out.State.Current)
	}
	if len(collector.Items()) != 0 {
		t.Fatalf("no duplicate notification expected, got %#v", collector.Items())
	}
}

func TestEvaluateAndPersistConcurrentTriggers(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	_ = mem.SaveStreak(ctx, "u1", nil, State{Current: 4, Longest: 4, LastUpdate: ptr(day(2024, 3, 9, 9))})
	svc := newTestService(mem, NewMemoryStore(), day(2024, 3, 10, 9))

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updates int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := svc.EvaluateAndPersist(ctx, session.User("u1"), nil)
			if out.Updated {
				mu.Lock()
				updates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if updates != 1 {
		t.Fatalf("expected exactly one update, got %d", updates)
	}
	if s, _ := mem.LoadStreak(ctx, "u1"); s.Current != 5 {
		t.Fatalf("expected streak 5, got %d", s.Current)
	}
}

type brokenStore struct {
	loadErr error
	saveErr error
	state   State
}

func (b *brokenStore) LoadStreak(context.Context, string) (State, error) {
	return b.state, b.loadErr
}

func (b *brokenStore) SaveStreak(context.Context, string, *time.Time, State) error {
	return b.saveErr
}

func TestEvaluateAndPersistFailures(t *testing.T) {
	ctx := context.Background()
	last := day(2024, 3, 9, 9)

	tests := []struct {
		name  string
		store *brokenStore
		want  int
	}{
		{name: "load error", store: &brokenStore{loadErr: errors.New("connection refused")}, want: 0},
		{name: "save error keeps last good value", store: &brokenStore{saveErr: errors.New("timeout"), state: State{Current: 4, LastUpdate: &last}}, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.store, NewMemoryStore(), day(2024, 3, 10, 9))
			collector := notify.NewCollector()

			out := svc.EvaluateAndPersist(ctx, session.User("u1"), collector)

			if !out.Failed || out.Updated {
				t.Fatalf("expected failed outcome, got %+v", out)
			}
			if out.State.Current != tt.want {
				t.Fatalf("expected streak %d kept, got %d", tt.want, out.State.Current)
			}
			items := collector.Items()
			if len(items) != 1 || !items[0].IsError() {
				t.Fatalf("expected one error notification, got %#v", items)
			}
		})
	}
}

type fakeReminders struct {
	candidates []ReminderCandidate
	marked     []string
	gotArgs    []time.Time
}

func (f *fakeReminders) ReminderCandidates(_ context.Context, _ int, yesterdayStart, todayStart, remindDay time.Time) ([]ReminderCandidate, error) {
	f.gotArgs = []time.Time{yesterdayStart, todayStart, remindDay}
	return f.candidates, nil
}

func (f *fakeReminders) MarkReminderSent(_ context.Context, userID string, _ time.Time) error {
	f.marked = append(f.marked, userID)
	return nil
}

type fakeSender struct {
	texts map[int64]string
	fail  map[int64]bool
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	if f.fail[chatID] {
		return errors.New("blocked by user")
	}
	f.texts[chatID] = text
	return nil
}

func TestSendReminders(t *testing.T) {
	ctx := context.Background()
	reminders := &fakeReminders{candidates: []ReminderCandidate{
		{UserID: "u1", CurrentStreak: 6, TelegramChatID: 100},
		{UserID: "u2", CurrentStreak: 3, TelegramChatID: 200},
	}}
	sender := &fakeSender{texts: map[int64]string{}, fail: map[int64]bool{200: true}}

	svc := NewService(NewMemoryStore(), NewMemoryStore(), reminders, testConfig())

	svc.SetClock(func() time.Time { return day(2024, 3, 10, 9) })
	if err := svc.SendReminders(ctx, sender); err != nil {
		t.Fatalf("SendReminders returned error: %v", err)
	}
	if len(sender.texts) != 0 {
		t.Fatal("no reminders expected before the reminder hour")
	}

	svc.SetClock(func() time.Time { return day(2024, 3, 10, 19) })
	if err := svc.SendReminders(ctx, sender); err != nil {
		t.Fatalf("SendReminders returned error: %v", err)
	}

	if got := sender.texts[100]; got != "⚠️ ¡Tienes una racha de 6 días! Haz un ejercicio hoy para no perderla." {
		t.Fatalf("unexpected reminder text: %q", got)
	}
	if len(reminders.marked) != 1 || reminders.marked[0] != "u1" {
		t.Fatalf("only delivered reminders must be marked, got %v", reminders.marked)
	}
	if !reminders.gotArgs[0].Equal(day(2024, 3, 9, 0)) || !reminders.gotArgs[1].Equal(day(2024, 3, 10, 0)) {
		t.Fatalf("unexpected day window: %v", reminders.gotArgs)
	}
}
