package exercises

import (
	"errors"
	"strings"
	"testing"
	"time"

	"letrasamigas.es/progress-service/internal/common"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"el gato come", 3},
		{"  hola   mundo  ", 2},
		{"", 0},
		{"una\tpalabra\ny otra", 4},
	}
	for _, tt := range tests {
		if got := CountWords(tt.text); got != tt.want {
			t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	passage := strings.Repeat("palabra ", 60)

	tests := []struct {
		name       string
		sub        Submission
		wantPoints int64
		wantScore  int
		wantWPM    int
		wantErr    error
	}{
		{name: "perfect dictation", sub: Submission{Type: TypeDictation, Correct: 10, Total: 10}, wantPoints: 100, wantScore: 10},
		{name: "seven of ten", sub: Submission{Type: TypeDictation, Correct: 7, Total: 10}, wantPoints: 35, wantScore: 7},
		{name: "zero correct", sub: Submission{Type: TypeFormation, Correct: 0, Total: 8}, wantPoints: 0, wantScore: 0},
		{name: "rounding half up", sub: Submission{Type: TypePhonics, Correct: 1, Total: 3}, wantPoints: 17, wantScore: 1},
		{name: "reading at 60 wpm", sub: Submission{Type: TypeReading, Text: passage, DurationSeconds: 60}, wantPoints: 25, wantScore: 50, wantWPM: 60},
		{name: "fast dyslexia reading", sub: Submission{Type: TypeReading, Text: passage, Difficulty: DifficultyDyslexia, DurationSeconds: 40}, wantPoints: 100, wantScore: 100, wantWPM: 90},
		{name: "correct above total", sub: Submission{Type: TypeDictation, Correct: 11, Total: 10}, wantErr: common.ErrInvalidScore},
		{name: "no total", sub: Submission{Type: TypeDictation}, wantErr: common.ErrInvalidScore},
		{name: "reading without time", sub: Submission{Type: TypeReading, Text: passage}, wantErr: common.ErrInvalidScore},
		{name: "reading without text", sub: Submission{Type: TypeReading, DurationSeconds: 30}, wantErr: common.ErrInvalidScore},
		{name: "unknown type", sub: Submission{Type: "casino", Correct: 1, Total: 1}, wantErr: common.ErrUnknownExercise},
		{name: "reading in a vanishing time", sub: Submission{Type: TypeReading, Text: "el gato come pan", DurationSeconds: 1e-300}, wantErr: common.ErrInvalidScore},
		{name: "reading under a second", sub: Submission{Type: TypeReading, Text: passage, DurationSeconds: 0.5}, wantErr: common.ErrInvalidScore},
		{name: "reading for two days", sub: Submission{Type: TypeReading, Text: passage, DurationSeconds: 2 * 24 * 60 * 60}, wantErr: common.ErrInvalidScore},
		{name: "dictation with huge duration", sub: Submission{Type: TypeDictation, Correct: 5, Total: 10, DurationSeconds: 1e300}, wantErr: common.ErrInvalidScore},
		{name: "dictation with negative duration", sub: Submission{Type: TypeDictation, Correct: 5, Total: 10, DurationSeconds: -3}, wantErr: common.ErrInvalidScore},
		{name: "too many items", sub: Submission{Type: TypeDictation, Correct: 5, Total: maxItems + 1}, wantErr: common.ErrInvalidScore},
		{name: "dictation with time", sub: Submission{Type: TypeDictation, Correct: 5, Total: 10, DurationSeconds: 95}, wantPoints: 25, wantScore: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.sub)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Points != tt.wantPoints || got.Score != tt.wantScore || got.WordsPerMinute != tt.wantWPM {
				t.Fatalf("unexpected result: %+v", got)
			}
		})
	}
}

func TestWordsPerMinute(t *testing.T) {
	got, err := WordsPerMinute(50, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	var results []Result
	// newest first: six weak dictations, then two strong readings
	for i := 0; i < 6; i++ {
		results = append(results, Result{
			Type: TypeDictation, Score: 5, MaxScore: 10, PointsEarned: 25,
			CompletedAt: base.Add(-time.Duration(i) * time.Hour),
		})
	}
	results = append(results,
		Result{Type: TypeReading, Score: 80, MaxScore: 100, PointsEarned: 40, CompletedAt: base.Add(-10 * time.Hour)},
		Result{Type: TypeReading, Score: 100, MaxScore: 100, PointsEarned: 100, CompletedAt: base.Add(-11 * time.Hour)},
	)

	sum := Summarize(results)

	if sum.TotalCompleted != 8 {
		t.Fatalf("expected 8 completed, got %d", sum.TotalCompleted)
	}
	if sum.TotalPoints != 6*25+40+100 {
		t.Fatalf("unexpected total points %d", sum.TotalPoints)
	}
	if st := sum.ByType[TypeReading]; st.Count != 2 || st.AvgPercent != 90 || st.TotalPoints != 140 {
		t.Fatalf("unexpected reading stats: %+v", st)
	}
	if st := sum.ByType[TypeDictation]; st.Count != 6 || st.AvgPercent != 50 {
		t.Fatalf("unexpected dictation stats: %+v", st)
	}
	if len(sum.ProblemExercises) != 5 {
		t.Fatalf("expected problems capped at 5, got %d", len(sum.ProblemExercises))
	}
	if !sum.ProblemExercises[0].CompletedAt.Equal(base) {
		t.Fatal("problems must keep the newest-first order")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(nil)
	if sum.TotalCompleted != 0 || sum.ByType == nil || sum.ProblemExercises == nil {
		t.Fatalf("unexpected empty summary: %+v", sum)
	}
}
