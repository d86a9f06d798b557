package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/model"
	"github.com/edustack/securexam-backend/internal/repository"
)

// ErrNotAssigned is returned when a student touches an exam nobody assigned
// to them. It carries no hint about whether the exam exists.
var ErrNotAssigned = errors.New("exam not assigned to student")

// AssignmentService handles exam-to-student assignment logic.
type AssignmentService struct {
	assignments repository.AssignmentStore
	exams       repository.ExamStore
	log         zerolog.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(assignments repository.AssignmentStore, exams repository.ExamStore, log zerolog.Logger) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		exams:       exams,
		log:         log.With().Str("component", "assignment_service").Logger(),
	}
}

// Assign grants a student access to an exam. Assigning twice is a no-op that
// returns the existing record.
func (s *AssignmentService) Assign(ctx context.Context, examID uuid.UUID, req *model.AssignRequest, assignedBy string) (*model.Assignment, error) {
	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}

	assignment, err := s.assignments.Create(ctx, &model.Assignment{
		ExamID:     examID,
		StudentID:  req.StudentID,
		Required:   required,
		AssignedBy: assignedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("assign exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", req.StudentID).
		Msg("exam assigned")
	return assignment, nil
}

// Unassign revokes a student's access. Returns ErrNotFound when no such
// assignment existed.
func (s *AssignmentService) Unassign(ctx context.Context, examID uuid.UUID, studentID string) error {
	deleted, err := s.assignments.Delete(ctx, examID, studentID)
	if err != nil {
		return fmt.Errorf("unassign exam: %w", err)
	}
	if !deleted {
		return repository.ErrNotFound
	}
	s.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Msg("exam unassigned")
	return nil
}

// ListByExam lists every assignment for one exam.
func (s *AssignmentService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Assignment, error) {
	assignments, err := s.assignments.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	return assignments, nil
}

// ListForStudent lists the exams assigned to a student, joined with the
// assignment granting each one. Question bodies are not included.
func (s *AssignmentService) ListForStudent(ctx context.Context, studentID string) ([]model.AssignedExam, error) {
	assignments, err := s.assignments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	out := make([]model.AssignedExam, 0, len(assignments))
	for _, a := range assignments {
		exam, err := s.exams.GetByID(ctx, a.ExamID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		exam.Questions = nil
		out = append(out, model.AssignedExam{Exam: *exam, Assignment: a})
	}
	return out, nil
}

// ExamForStudent is the access gate for student-facing exam reads: it returns
// the exam only when an assignment exists, and ErrNotAssigned otherwise,
// regardless of whether the exam itself exists.
func (s *AssignmentService) ExamForStudent(ctx context.Context, examID uuid.UUID, studentID string) (*model.Exam, error) {
	if _, err := s.assignments.GetByExamAndStudent(ctx, examID, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAssigned
		}
		return nil, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAssigned
		}
		return nil, err
	}
	return exam, nil
}
