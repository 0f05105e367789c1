// Package exercises records finished exercises, scores them on the server and
// summarizes progress. Finishing an exercise is the second streak trigger.
// models.go describes submissions, stored results and the progress summary.
package exercises

import "time"

// Exercise types as stored in exercise_results.exercise_type.
const (
	TypeReading         = "lectura"
	TypeDictation       = "dictado"
	TypeFormation       = "formacion"
	TypePhonics         = "fonologia"
	TypeDifferentiation = "diferenciacion"
)

// Reading difficulties.
const (
	DifficultyNormal   = "normal"
	DifficultyDyslexia = "dislexia"
)

// labels are the Spanish names used in ledger reasons.
var labels = map[string]string{
	TypeReading:         "Lectura",
	TypeDictation:       "Dictado",
	TypeFormation:       "Formación de palabras",
	TypePhonics:         "Conciencia fonológica",
	TypeDifferentiation: "Diferenciación de letras",
}

// Submission is what the client sends when an exercise ends.
// Reading exercises send the passage and the reading time; the others send counts.
type Submission struct {
	Type            string  `json:"exercise_type" binding:"required"`
	ExerciseID      string  `json:"exercise_id"`
	Correct         int     `json:"correct"`
	Total           int     `json:"total"`
	Text            string  `json:"text"`
	Difficulty      string  `json:"difficulty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Scored is the server-side evaluation of a submission.
type Scored struct {
	Score          int     `json:"score"`
	MaxScore       int     `json:"max_score"`
	Percent        float64 `json:"percent"`
	Points         int64   `json:"points"`
	Grade          int     `json:"grade"`
	Perfect        bool    `json:"perfect"`
	WordsPerMinute int     `json:"words_per_minute,omitempty"`
	Words          int     `json:"words,omitempty"`
}

// Result is one row of exercise_results.
type Result struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"user_id"`
	Type         string                 `json:"exercise_type"`
	ExerciseID   string                 `json:"exercise_id"`
	Score        int                    `json:"score"`
	MaxScore     int                    `json:"max_score"`
	PointsEarned int64                  `json:"points_earned"`
	Grade        int                    `json:"grade"`
	Details      map[string]interface{} `json:"details"`
	CompletedAt  time.Time              `json:"completed_at"`
}

// Percent returns the score as a percentage of max score.
func (r Result) Percent() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return float64(r.Score) / float64(r.MaxScore) * 100
}

// TypeStats aggregates results of one exercise type.
type TypeStats struct {
	Type        string  `json:"type"`
	Count       int     `json:"count"`
	AvgPercent  float64 `json:"avg_percent"`
	TotalPoints int64   `json:"total_points"`
}

// Summary is the progress overview of a user.
type Summary struct {
	ByType           map[string]TypeStats `json:"by_type"`
	ProblemExercises []Result             `json:"problem_exercises"`
	TotalCompleted   int                  `json:"total_completed"`
	TotalPoints      int64                `json:"total_points"`
}
