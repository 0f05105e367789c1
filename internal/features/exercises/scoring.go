// Package exercises: scoring.go computes scores, points and reading speed.
// The client only reports raw counts; everything derived is computed here.
package exercises

import (
	"fmt"
	"math"
	"strings"

	"letrasamigas.es/progress-service/internal/common"
)

const (
	perfectPoints = 100
	// Reading speed that counts as 100% per difficulty, words per minute.
	readingThresholdNormal   = 120
	readingThresholdDyslexia = 80
	// A reading score at or above this is perfect.
	readingPerfectScore = 95
	// Below this percentage an exercise is listed as a problem.
	problemPercent = 70
	maxProblems    = 5
	// Accepted exercise durations, seconds. Reading needs at least one second.
	minReadingSeconds  = 1
	maxDurationSeconds = 24 * 60 * 60
	// Upper bound on items in one counted exercise.
	maxItems = 1000
)

// CountWords returns the number of whitespace separated words.
//
// Examples:
//
//	CountWords("el gato come")      → 3
//	CountWords("  hola   mundo  ")  → 2
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// WordsPerMinute returns round(words / seconds * 60).
// seconds must be within minReadingSeconds..maxDurationSeconds.
func WordsPerMinute(words int, seconds float64) (int, error) {
	if math.IsNaN(seconds) || seconds < minReadingSeconds || seconds > maxDurationSeconds {
		return 0, fmt.Errorf("%w: reading time must be between %d and %d seconds",
			common.ErrInvalidScore, minReadingSeconds, maxDurationSeconds)
	}
	return int(math.Round(float64(words) / seconds * 60)), nil
}

// PointsFor returns 100 for a perfect result and round(percent/2) otherwise.
func PointsFor(percent float64, perfect bool) int64 {
	if perfect {
		return perfectPoints
	}
	return int64(math.Round(percent / 2))
}

// Score evaluates a submission.
func Score(sub Submission) (Scored, error) {
	if _, ok := labels[sub.Type]; !ok {
		return Scored{}, common.ErrUnknownExercise
	}
	if math.IsNaN(sub.DurationSeconds) || sub.DurationSeconds < 0 || sub.DurationSeconds > maxDurationSeconds {
		return Scored{}, fmt.Errorf("%w: duration must be between 0 and %d seconds", common.ErrInvalidScore, maxDurationSeconds)
	}
	if sub.Type == TypeReading {
		return scoreReading(sub)
	}

	if sub.Total <= 0 || sub.Total > maxItems || sub.Correct < 0 || sub.Correct > sub.Total {
		return Scored{}, fmt.Errorf("%w: correct=%d total=%d", common.ErrInvalidScore, sub.Correct, sub.Total)
	}

	percent := float64(sub.Correct) / float64(sub.Total) * 100
	perfect := sub.Correct == sub.Total
	return Scored{
		Score:    sub.Correct,
		MaxScore: sub.Total,
		Percent:  percent,
		Points:   PointsFor(percent, perfect),
		Grade:    int(math.Round(percent / 10)),
		Perfect:  perfect,
	}, nil
}

func scoreReading(sub Submission) (Scored, error) {
	words := CountWords(sub.Text)
	if words == 0 {
		return Scored{}, fmt.Errorf("%w: empty reading passage", common.ErrInvalidScore)
	}
	wpm, err := WordsPerMinute(words, sub.DurationSeconds)
	if err != nil {
		return Scored{}, err
	}

	threshold := float64(readingThresholdNormal)
	if sub.Difficulty == DifficultyDyslexia {
		threshold = readingThresholdDyslexia
	}

	percent := math.Min(float64(wpm)/threshold*100, 100)
	score := int(math.Round(percent))
	perfect := score >= readingPerfectScore
	return Scored{
		Score:          score,
		MaxScore:       100,
		Percent:        percent,
		Points:         PointsFor(float64(score), perfect),
		Grade:          int(math.Round(float64(score) / 10)),
		Perfect:        perfect,
		WordsPerMinute: wpm,
		Words:          words,
	}, nil
}

// Summarize builds the progress overview. results must be ordered newest first.
func Summarize(results []Result) Summary {
	sum := Summary{
		ByType:           make(map[string]TypeStats),
		ProblemExercises: make([]Result, 0, maxProblems),
		TotalCompleted:   len(results),
	}

	totals := make(map[string]float64)
	for _, r := range results {
		st := sum.ByType[r.Type]
		st.Type = r.Type
		st.Count++
		st.TotalPoints += r.PointsEarned
		sum.ByType[r.Type] = st

		totals[r.Type] += r.Percent()
		sum.TotalPoints += r.PointsEarned

		if r.Percent() < problemPercent && len(sum.ProblemExercises) < maxProblems {
			sum.ProblemExercises = append(sum.ProblemExercises, r)
		}
	}

	for t, st := range sum.ByType {
		st.AvgPercent = totals[t] / float64(st.Count)
		sum.ByType[t] = st
	}
	return sum
}
