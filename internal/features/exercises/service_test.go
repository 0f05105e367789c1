package exercises

import (
	"context"
	"errors"
	"testing"
	"time"

	"letrasamigas.es/progress-service/internal/config"
	"letrasamigas.es/progress-service/internal/features/points"
	"letrasamigas.es/progress-service/internal/features/streak"
	"letrasamigas.es/progress-service/internal/notify"
	"letrasamigas.es/progress-service/internal/session"
)

const testUser = "5b0b7d3e-8f7a-4c43-9d0f-4f1c2b6a9e10"

type testEnv struct {
	svc     *Service
	results Store
	ledger  *points.MemoryStore
	streaks *streak.MemoryStore
}

func newTestEnv(results Store, now time.Time) testEnv {
	ledger := points.NewMemoryStore()
	pts := points.NewService(ledger, points.NewMemoryStore(), ledger)
	pts.SetClock(func() time.Time { return now })

	streakStore := streak.NewMemoryStore()
	streaks := streak.NewService(streakStore, streak.NewMemoryStore(), nil, &config.Config{AppTimezone: "UTC"})
	streaks.SetClock(func() time.Time { return now })

	svc := NewService(results, pts, streaks)
	svc.SetClock(func() time.Time { return now })
	return testEnv{svc: svc, results: results, ledger: ledger, streaks: streakStore}
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC)
	env := newTestEnv(NewMemoryStore(), now)

	yesterday := now.Add(-20 * time.Hour)
	_ = env.streaks.SaveStreak(ctx, testUser, nil, streak.State{Current: 4, Longest: 4, LastUpdate: &yesterday})

	collector := notify.NewCollector()
	out, err := env.svc.Complete(ctx, session.User(testUser), Submission{Type: TypeDictation, Correct: 7, Total: 10}, collector)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if !out.Saved || out.Failed {
		t.Fatalf("unexpected completion: %+v", out)
	}
	if out.Grant.Awarded != 35 || out.Grant.Total != 35 {
		t.Fatalf("unexpected grant: %+v", out.Grant)
	}
	if !out.Streak.Updated || out.Streak.State.Current != 5 {
		t.Fatalf("unexpected streak outcome: %+v", out.Streak)
	}

	titles := []string{}
	for _, n := range collector.Items() {
		titles = append(titles, n.Title)
	}
	want := []string{"Progreso guardado", "¡Has ganado 35 puntos!", "¡Racha de 5 días!"}
	if len(titles) != len(want) {
		t.Fatalf("expected %v, got %v", want, titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, titles)
		}
	}

	summary, err := env.svc.Progress(ctx, testUser)
	if err != nil {
		t.Fatalf("Progress returned error: %v", err)
	}
	if summary.TotalCompleted != 1 || summary.TotalPoints != 35 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	history, _ := env.ledger.History(ctx, testUser, 5)
	if len(history) != 1 || history[0].Reason != "Ejercicio completado: Dictado" {
		t.Fatalf("unexpected ledger: %#v", history)
	}
}

func TestCompleteSecondExerciseSameDayKeepsStreak(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC)
	env := newTestEnv(NewMemoryStore(), now)

	sub := Submission{Type: TypeFormation, Correct: 4, Total: 4}
	first, _ := env.svc.Complete(ctx, session.User(testUser), sub, nil)
	second, _ := env.svc.Complete(ctx, session.User(testUser), sub, nil)

	if first.Streak.State.Current != 1 || second.Streak.State.Current != 1 || second.Streak.Updated {
		t.Fatalf("unexpected streaks: %+v / %+v", first.Streak, second.Streak)
	}
	if second.Grant.Total != 200 {
		t.Fatalf("expected 200 points after two perfect results, got %d", second.Grant.Total)
	}
}

func TestCompleteZeroPointsSkipsGrant(t *testing.T) {
	env := newTestEnv(NewMemoryStore(), time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC))
	collector := notify.NewCollector()

	out, err := env.svc.Complete(context.Background(), session.Device("tablet-1"), Submission{Type: TypeDictation, Correct: 0, Total: 10}, collector)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if out.Saved {
		t.Fatal("anonymous results are not stored")
	}
	if out.Grant.Awarded != 0 {
		t.Fatalf("expected no grant, got %+v", out.Grant)
	}
	for _, n := range collector.Items() {
		if n.IsError() {
			t.Fatalf("unexpected error notification: %#v", n)
		}
	}
}

type failingResults struct{ MemoryStore }

func (*failingResults) Save(context.Context, Result) error { return errors.New("disk full") }

func TestCompleteSaveFailure(t *testing.T) {
	env := newTestEnv(&failingResults{}, time.Date(2024, 3, 10, 17, 0, 0, 0, time.UTC))
	collector := notify.NewCollector()

	out, err := env.svc.Complete(context.Background(), session.User(testUser), Submission{Type: TypeDictation, Correct: 10, Total: 10}, collector)
	if err != nil {
		t.Fatalf("storage failures must not be returned, got %v", err)
	}
	if !out.Failed || out.Grant.Awarded != 0 {
		t.Fatalf("unexpected completion: %+v", out)
	}
	items := collector.Items()
	if len(items) != 1 || items[0].Description != "No se pudo guardar tu resultado" {
		t.Fatalf("unexpected notifications: %#v", items)
	}
	if total, _ := env.ledger.TotalPoints(context.Background(), testUser); total != 0 {
		t.Fatalf("no points expected, got %d", total)
	}
}

func TestCompleteRejectsInvalidSubmission(t *testing.T) {
	env := newTestEnv(NewMemoryStore(), time.Now())
	_, err := env.svc.Complete(context.Background(), session.User(testUser), Submission{Type: TypeDictation, Correct: 3, Total: 2}, nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
