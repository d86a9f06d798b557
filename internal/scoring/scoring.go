// Package scoring grades submitted answers against an exam's answer key.
package scoring

import (
	"math"

	"github.com/edustack/securexam-backend/internal/model"
)

// Score compares the answers map (questionID -> selected option index)
// against the exam's canonical question list and returns an integer
// percentage 0..100, rounded half away from zero. Unanswered questions count
// as incorrect; an exam with zero questions scores 0.
func Score(questions []model.Question, answers map[string]int) int {
	if len(questions) == 0 {
		return 0
	}

	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID.String()]; ok && selected == q.CorrectOptionIndex {
			correct++
		}
	}

	return int(math.Round(float64(correct) / float64(len(questions)) * 100))
}
