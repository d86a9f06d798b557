package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is the queue payload for the asynchronous audit trail. Entries
// are pushed to Redis on the hot path and batch-inserted into Postgres by the
// audit worker.
type AuditEvent struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	StudentID  string    `json:"student_id"`
	Event      string    `json:"event"`
	Details    string    `json:"details,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
