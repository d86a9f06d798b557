package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/edustack/securexam-backend/internal/model"
)

func questionsWithKey(correct ...int) []model.Question {
	qs := make([]model.Question, len(correct))
	for i, c := range correct {
		qs[i] = model.Question{
			ID:                 uuid.New(),
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: c,
		}
	}
	return qs
}

func answerFirst(qs []model.Question, n int) map[string]int {
	answers := map[string]int{}
	for i := 0; i < n && i < len(qs); i++ {
		answers[qs[i].ID.String()] = qs[i].CorrectOptionIndex
	}
	return answers
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		correct int
		want    int
	}{
		{"all correct", 4, 4, 100},
		{"none correct", 4, 0, 0},
		{"half", 4, 2, 50},
		{"one third rounds down", 3, 1, 33},
		{"two thirds rounds up", 3, 2, 67},
		{"one of seven", 7, 1, 14},
		{"six of seven", 7, 6, 86},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := questionsWithKey(make([]int, tt.total)...)
			answers := answerFirst(qs, tt.correct)
			if got := Score(qs, answers); got != tt.want {
				t.Errorf("Score() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreZeroQuestions(t *testing.T) {
	if got := Score(nil, map[string]int{"x": 1}); got != 0 {
		t.Fatalf("Score(nil) = %d, want 0", got)
	}
}

func TestScoreWrongAnswerNotCounted(t *testing.T) {
	qs := questionsWithKey(1, 2)
	answers := map[string]int{
		qs[0].ID.String(): 1, // correct
		qs[1].ID.String(): 0, // wrong
	}
	if got := Score(qs, answers); got != 50 {
		t.Fatalf("Score() = %d, want 50", got)
	}
}

func TestScoreIgnoresUnknownQuestionIDs(t *testing.T) {
	qs := questionsWithKey(0)
	answers := map[string]int{
		qs[0].ID.String():   0,
		uuid.New().String(): 0, // stale key from a deleted question
	}
	if got := Score(qs, answers); got != 100 {
		t.Fatalf("Score() = %d, want 100", got)
	}
}

func TestScoreUnansweredCountsAsIncorrect(t *testing.T) {
	qs := questionsWithKey(0, 0, 0, 0)
	answers := answerFirst(qs, 3)
	if got := Score(qs, answers); got != 75 {
		t.Fatalf("Score() = %d, want 75", got)
	}
}
