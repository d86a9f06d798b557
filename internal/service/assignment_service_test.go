package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/model"
	"github.com/edustack/securexam-backend/internal/repository"
)

func newAssignmentFixture(t *testing.T) (*AssignmentService, *repository.MemStore, *model.Exam) {
	t.Helper()

	store := repository.NewMemStore()
	svc := NewAssignmentService(store.Assignments(), store.Exams(), zerolog.Nop())

	exam := &model.Exam{
		Title:           "History Final",
		DurationMinutes: 60,
		CreatedBy:       "teacher-1",
		Questions: []model.Question{
			{QuestionText: "q1", Options: []string{"a", "b"}, CorrectOptionIndex: 0},
		},
	}
	if err := store.Exams().Create(context.Background(), exam); err != nil {
		t.Fatalf("create exam: %v", err)
	}
	return svc, store, exam
}

func TestAssignAndReassign(t *testing.T) {
	svc, _, exam := newAssignmentFixture(t)
	ctx := context.Background()

	first, err := svc.Assign(ctx, exam.ID, &model.AssignRequest{StudentID: "s1"}, "teacher-1")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !first.Required {
		t.Fatal("required should default to true")
	}

	// Assigning again hands back the existing record.
	second, err := svc.Assign(ctx, exam.ID, &model.AssignRequest{StudentID: "s1"}, "teacher-2")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("reassign created a new record: %s != %s", second.ID, first.ID)
	}
}

func TestAssignOptional(t *testing.T) {
	svc, _, exam := newAssignmentFixture(t)

	optional := false
	a, err := svc.Assign(context.Background(), exam.ID, &model.AssignRequest{StudentID: "s1", Required: &optional}, "teacher-1")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if a.Required {
		t.Fatal("explicit required=false ignored")
	}
}

func TestAssignMissingExam(t *testing.T) {
	svc, _, _ := newAssignmentFixture(t)

	_, err := svc.Assign(context.Background(), uuid.New(), &model.AssignRequest{StudentID: "s1"}, "teacher-1")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUnassign(t *testing.T) {
	svc, _, exam := newAssignmentFixture(t)
	ctx := context.Background()

	if _, err := svc.Assign(ctx, exam.ID, &model.AssignRequest{StudentID: "s1"}, "teacher-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if err := svc.Unassign(ctx, exam.ID, "s1"); err != nil {
		t.Fatalf("Unassign: %v", err)
	}
	if err := svc.Unassign(ctx, exam.ID, "s1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second unassign: err = %v, want ErrNotFound", err)
	}
}

func TestListForStudentStripsQuestions(t *testing.T) {
	svc, _, exam := newAssignmentFixture(t)
	ctx := context.Background()

	if _, err := svc.Assign(ctx, exam.ID, &model.AssignRequest{StudentID: "s1"}, "teacher-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	assigned, err := svc.ListForStudent(ctx, "s1")
	if err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}
	if len(assigned) != 1 {
		t.Fatalf("assigned = %d, want 1", len(assigned))
	}
	if assigned[0].Exam.ID != exam.ID {
		t.Fatalf("exam = %s, want %s", assigned[0].Exam.ID, exam.ID)
	}
	if assigned[0].Exam.Questions != nil {
		t.Fatal("question bodies leaked into the student listing")
	}
}

func TestExamForStudentGate(t *testing.T) {
	svc, _, exam := newAssignmentFixture(t)
	ctx := context.Background()

	// Unassigned student and nonexistent exam read identically.
	if _, err := svc.ExamForStudent(ctx, exam.ID, "s1"); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("unassigned: err = %v, want ErrNotAssigned", err)
	}
	if _, err := svc.ExamForStudent(ctx, uuid.New(), "s1"); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("missing exam: err = %v, want ErrNotAssigned", err)
	}

	if _, err := svc.Assign(ctx, exam.ID, &model.AssignRequest{StudentID: "s1"}, "teacher-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	got, err := svc.ExamForStudent(ctx, exam.ID, "s1")
	if err != nil {
		t.Fatalf("ExamForStudent: %v", err)
	}
	if got.ID != exam.ID {
		t.Fatalf("exam = %s, want %s", got.ID, exam.ID)
	}
}
