package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress    AttemptStatus = "in_progress"
	AttemptStatusSubmitted     AttemptStatus = "submitted"
	AttemptStatusAutoSubmitted AttemptStatus = "auto_submitted"
)

// Terminal reports whether the status admits no further mutation.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptStatusInProgress
}

// SubmitReason enumerates why an attempt left in_progress.
type SubmitReason string

const (
	ReasonSubmitted   SubmitReason = "submitted"
	ReasonTimeExpired SubmitReason = "time_expired"
	ReasonFocusLost   SubmitReason = "focus_lost"
	ReasonWindowBlur  SubmitReason = "window_blur"
)

// Activity event names recorded on the attempt log.
const (
	ActivityExamStarted        = "exam_started"
	ActivityExamSubmitted      = "exam_submitted"
	ActivityFocusLost          = "focus_lost"
	ActivityWindowBlur         = "window_blur"
	ActivityCopyPasteBlocked   = "copy_paste_blocked"
	ActivityContextMenuBlocked = "context_menu_blocked"
)

// Attempt is one student's single timed session against one exam.
// StartedAt is set once and never changes; FinishedAt, SubmittedReason and
// Score stay nil until the attempt is finalized. Once Status is terminal the
// record is read-only.
type Attempt struct {
	ID               uuid.UUID      `json:"id"`
	ExamID           uuid.UUID      `json:"exam_id"`
	StudentID        string         `json:"student_id"`
	Status           AttemptStatus  `json:"status"`
	StartedAt        time.Time      `json:"started_at"`
	FinishedAt       *time.Time     `json:"finished_at,omitempty"`
	SubmittedReason  *SubmitReason  `json:"submitted_reason,omitempty"`
	Answers          map[string]int `json:"answers"`
	Score            *int           `json:"score,omitempty"`
	UserAgent        string         `json:"user_agent,omitempty"`
	IsLockdownClient bool           `json:"is_lockdown_client"`
}

// ActivityEntry is one append-only attempt log record.
type ActivityEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Details   string    `json:"details,omitempty"`
}

// AttemptState is the resume payload for an in-progress attempt: the merged
// answers so far plus the remaining wall-clock seconds, recomputed from the
// persisted start time so a page reload never grants extra time.
type AttemptState struct {
	AttemptID        uuid.UUID      `json:"attempt_id"`
	ExamID           uuid.UUID      `json:"exam_id"`
	StudentID        string         `json:"student_id"`
	Status           AttemptStatus  `json:"status"`
	Answers          map[string]int `json:"answers"`
	RemainingSeconds int            `json:"remaining_seconds"`
}

// UpdateAnswersRequest merges questionID -> selected option index pairs.
type UpdateAnswersRequest struct {
	Answers map[string]int `json:"answers" binding:"required,min=1"`
}
