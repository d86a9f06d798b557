package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edustack/securexam-backend/internal/model"
)

// AttemptRepository is the PostgreSQL AttemptStore.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

var _ AttemptStore = (*AttemptRepository)(nil)

const attemptColumns = `id, exam_id, student_id, status, started_at, finished_at,
	submitted_reason, answers, score, user_agent, is_lockdown_client`

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Status, &a.StartedAt,
		&a.FinishedAt, &a.SubmittedReason, &a.Answers, &a.Score,
		&a.UserAgent, &a.IsLockdownClient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if a.Answers == nil {
		a.Answers = map[string]int{}
	}
	return a, nil
}

// Create inserts a fresh in_progress attempt. The partial unique index on
// (exam_id, student_id) WHERE status = 'in_progress' guarantees at most one
// live attempt per pair; a concurrent create surfaces as ErrNotFound here and
// the caller resumes the winner instead.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, student_id, status, answers, user_agent, is_lockdown_client)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exam_id, student_id) WHERE status = 'in_progress' DO NOTHING
		 RETURNING id, started_at`,
		attempt.ExamID, attempt.StudentID, model.AttemptStatusInProgress,
		attempt.Answers, attempt.UserAgent, attempt.IsLockdownClient,
	).Scan(&attempt.ID, &attempt.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	attempt.Status = model.AttemptStatusInProgress
	return nil
}

// GetByID retrieves a single attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id))
}

// GetInProgress retrieves the live attempt for the pair, if any.
func (r *AttemptRepository) GetInProgress(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE exam_id = $1 AND student_id = $2 AND status = 'in_progress'`,
		examID, studentID))
}

// Latest retrieves the most recently started attempt for the pair.
func (r *AttemptRepository) Latest(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE exam_id = $1 AND student_id = $2
		 ORDER BY started_at DESC
		 LIMIT 1`,
		examID, studentID))
}

// MergeAnswers merges partial answers into an in_progress attempt. The jsonb
// || operator gives last-write-wins per question key. Terminal attempts are
// never touched.
func (r *AttemptRepository) MergeAnswers(ctx context.Context, id uuid.UUID, partial map[string]int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET answers = answers || $2::jsonb
		 WHERE id = $1 AND status = 'in_progress'
		 RETURNING `+attemptColumns,
		id, partial))
}

// AppendActivity appends one log entry. The log table is append-only; entries
// are never updated or deleted while the attempt exists.
func (r *AttemptRepository) AppendActivity(ctx context.Context, id uuid.UUID, entry model.ActivityEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_activity (attempt_id, at, event, details)
		 VALUES ($1, $2, $3, $4)`,
		id, entry.Timestamp, entry.Event, entry.Details)
	return err
}

// ListActivity returns the attempt's log in append order.
func (r *AttemptRepository) ListActivity(ctx context.Context, id uuid.UUID) ([]model.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT at, event, details
		 FROM attempt_activity
		 WHERE attempt_id = $1
		 ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.Timestamp, &e.Event, &e.Details); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Finalize transitions an in_progress attempt to a terminal status. The WHERE
// clause is the idempotency guard: when a timer expiry and a manual submit
// race, only the first UPDATE matches and the loser receives the already
// terminal record with finalized=false.
func (r *AttemptRepository) Finalize(ctx context.Context, id uuid.UUID, status model.AttemptStatus, reason model.SubmitReason, finishedAt time.Time, score int) (*model.Attempt, bool, error) {
	attempt, err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET status = $2, submitted_reason = $3, finished_at = $4, score = $5
		 WHERE id = $1 AND status = 'in_progress'
		 RETURNING `+attemptColumns,
		id, status, reason, finishedAt, score))
	if err == nil {
		return attempt, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("finalize attempt: %w", err)
	}

	// Already terminal, or missing entirely.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

// ListByExam retrieves all attempts for an exam, newest first.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE exam_id = $1
		 ORDER BY started_at DESC`, examID)
}

// ListByStudent retrieves all attempts for a student, newest first.
func (r *AttemptRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID)
}

func (r *AttemptRepository) list(ctx context.Context, query string, arg any) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *attempt)
	}
	return attempts, rows.Err()
}
