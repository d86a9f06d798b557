package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents a secure exam definition.
type Exam struct {
	ID                    uuid.UUID  `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	DurationMinutes       int        `json:"duration_minutes"`
	EnabledLockdown       bool       `json:"enabled_lockdown"`
	AutoSubmitOnFocusLoss bool       `json:"auto_submit_on_focus_loss"`
	ExitPassword          string     `json:"exit_password,omitempty"`
	ConfigPassword        string     `json:"config_password,omitempty"`
	AllowedURL            string     `json:"allowed_url,omitempty"`
	CreatedBy             string     `json:"created_by"`
	Questions             []Question `json:"questions,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Question is a single multiple-choice question belonging to an exam.
// CorrectOptionIndex must index into Options; Options must be non-empty.
type Question struct {
	ID                 uuid.UUID `json:"id"`
	ExamID             uuid.UUID `json:"exam_id"`
	QuestionText       string    `json:"question_text"`
	Options            []string  `json:"options"`
	CorrectOptionIndex int       `json:"correct_option_index"`
	OrderNum           int       `json:"order_num"`
}

// QuestionForStudent is a question stripped of its correct answer.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
}

// ForStudent strips the correct answer from a question.
func (q Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      q.Options,
	}
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title                 string                  `json:"title" binding:"required,min=3,max=255"`
	Description           string                  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes       int                     `json:"duration_minutes" binding:"required,min=1,max=480"`
	EnabledLockdown       bool                    `json:"enabled_lockdown"`
	AutoSubmitOnFocusLoss bool                    `json:"auto_submit_on_focus_loss"`
	ExitPassword          string                  `json:"exit_password" binding:"omitempty,max=64"`
	ConfigPassword        string                  `json:"config_password" binding:"omitempty,max=64"`
	AllowedURL            string                  `json:"allowed_url" binding:"omitempty,url"`
	Questions             []CreateQuestionRequest `json:"questions" binding:"dive"`
}

// UpdateExamRequest is the payload for updating an existing exam.
// Nil pointer fields are left unchanged.
type UpdateExamRequest struct {
	Title                 string                  `json:"title" binding:"omitempty,min=3,max=255"`
	Description           *string                 `json:"description" binding:"omitempty"`
	DurationMinutes       int                     `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	EnabledLockdown       *bool                   `json:"enabled_lockdown" binding:"omitempty"`
	AutoSubmitOnFocusLoss *bool                   `json:"auto_submit_on_focus_loss" binding:"omitempty"`
	ExitPassword          *string                 `json:"exit_password" binding:"omitempty,max=64"`
	ConfigPassword        *string                 `json:"config_password" binding:"omitempty,max=64"`
	AllowedURL            *string                 `json:"allowed_url" binding:"omitempty"`
	Questions             []CreateQuestionRequest `json:"questions" binding:"omitempty,dive"`
}

// CreateQuestionRequest is the payload for one question inside exam create/update.
type CreateQuestionRequest struct {
	QuestionText       string   `json:"question_text" binding:"required,min=1,max=2000"`
	Options            []string `json:"options" binding:"required,min=1"`
	CorrectOptionIndex int      `json:"correct_option_index" binding:"min=0"`
}
