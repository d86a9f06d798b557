package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/edustack/securexam-backend/internal/model"
)

// ErrNotFound is returned by every store when the requested record does not
// exist. Postgres implementations translate pgx.ErrNoRows into it so callers
// never depend on the driver.
var ErrNotFound = errors.New("record not found")

// ExamStore persists exam definitions and their questions.
type ExamStore interface {
	Create(ctx context.Context, exam *model.Exam) error
	Update(ctx context.Context, exam *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	List(ctx context.Context) ([]model.Exam, error)
	// Delete removes the exam and cascades to its assignments, attempts and
	// activity so no orphans remain.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AssignmentStore persists exam-to-student assignments.
type AssignmentStore interface {
	// Create is idempotent: assigning an already-assigned (exam, student)
	// pair returns the existing record untouched.
	Create(ctx context.Context, a *model.Assignment) (*model.Assignment, error)
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID string) (*model.Assignment, error)
	// Delete removes exactly the matching pair; returns false when no such
	// assignment existed.
	Delete(ctx context.Context, examID uuid.UUID, studentID string) (bool, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Assignment, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Assignment, error)
}

// AttemptStore persists exam attempts and their append-only activity log.
type AttemptStore interface {
	Create(ctx context.Context, attempt *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	// GetInProgress returns the single non-terminal attempt for the pair.
	GetInProgress(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error)
	// Latest returns the most recently started attempt for the pair.
	Latest(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error)
	// MergeAnswers merges partial answers into an in_progress attempt,
	// last write per question wins. Returns ErrNotFound when the attempt
	// does not exist or is already terminal.
	MergeAnswers(ctx context.Context, id uuid.UUID, partial map[string]int) (*model.Attempt, error)
	AppendActivity(ctx context.Context, id uuid.UUID, entry model.ActivityEntry) error
	ListActivity(ctx context.Context, id uuid.UUID) ([]model.ActivityEntry, error)
	// Finalize transitions an in_progress attempt to the given terminal
	// status. When the attempt is already terminal it returns the existing
	// record and finalized=false without touching it: first finalize wins.
	Finalize(ctx context.Context, id uuid.UUID, status model.AttemptStatus, reason model.SubmitReason, finishedAt time.Time, score int) (attempt *model.Attempt, finalized bool, err error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Attempt, error)
}
