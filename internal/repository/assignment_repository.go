package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edustack/securexam-backend/internal/model"
)

// AssignmentRepository is the PostgreSQL AssignmentStore.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

var _ AssignmentStore = (*AssignmentRepository)(nil)

// Create inserts an assignment. The UNIQUE (exam_id, student_id) constraint
// plus ON CONFLICT DO NOTHING makes assigning twice a no-op that returns the
// existing record.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) (*model.Assignment, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_assignments (exam_id, student_id, required, assigned_by)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, assigned_at`,
		a.ExamID, a.StudentID, a.Required, a.AssignedBy,
	).Scan(&a.ID, &a.AssignedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict path: the pair is already assigned.
		existing, fetchErr := r.GetByExamAndStudent(ctx, a.ExamID, a.StudentID)
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch existing assignment: %w", fetchErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByExamAndStudent retrieves the assignment for a specific pair.
func (r *AssignmentRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID string) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, required, assigned_by, assigned_at
		 FROM exam_assignments
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Required, &a.AssignedBy, &a.AssignedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Delete removes exactly the matching (exam, student) pair.
func (r *AssignmentRepository) Delete(ctx context.Context, examID uuid.UUID, studentID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM exam_assignments WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByExam retrieves all assignments for an exam, newest first.
func (r *AssignmentRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT id, exam_id, student_id, required, assigned_by, assigned_at
		 FROM exam_assignments
		 WHERE exam_id = $1
		 ORDER BY assigned_at DESC`, examID)
}

// ListByStudent retrieves all assignments for a student, newest first.
func (r *AssignmentRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Assignment, error) {
	return r.list(ctx,
		`SELECT id, exam_id, student_id, required, assigned_by, assigned_at
		 FROM exam_assignments
		 WHERE student_id = $1
		 ORDER BY assigned_at DESC`, studentID)
}

func (r *AssignmentRepository) list(ctx context.Context, query string, arg any) ([]model.Assignment, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.Required, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
