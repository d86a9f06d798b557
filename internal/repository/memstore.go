package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edustack/securexam-backend/internal/model"
)

// MemStore is an in-memory dataset behind the three store interfaces. The
// Exams/Assignments/Attempts views share it so cascade deletes behave like
// the SQL schema. It backs the unit tests and keeps the engine portable to
// any real backend.
type MemStore struct {
	mu          sync.Mutex
	exams       map[uuid.UUID]*model.Exam
	assignments map[uuid.UUID]*model.Assignment
	attempts    map[uuid.UUID]*model.Attempt
	activity    map[uuid.UUID][]model.ActivityEntry

	// Now is the clock used for generated timestamps. Tests may replace it.
	Now func() time.Time
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		exams:       map[uuid.UUID]*model.Exam{},
		assignments: map[uuid.UUID]*model.Assignment{},
		attempts:    map[uuid.UUID]*model.Attempt{},
		activity:    map[uuid.UUID][]model.ActivityEntry{},
		Now:         time.Now,
	}
}

// Exams returns the ExamStore view.
func (m *MemStore) Exams() ExamStore { return memExams{m} }

// Assignments returns the AssignmentStore view.
func (m *MemStore) Assignments() AssignmentStore { return memAssignments{m} }

// Attempts returns the AttemptStore view.
func (m *MemStore) Attempts() AttemptStore { return memAttempts{m} }

type memExams struct{ *MemStore }
type memAssignments struct{ *MemStore }
type memAttempts struct{ *MemStore }

var (
	_ ExamStore       = memExams{}
	_ AssignmentStore = memAssignments{}
	_ AttemptStore    = memAttempts{}
)

func cloneExam(e *model.Exam) *model.Exam {
	cp := *e
	cp.Questions = append([]model.Question(nil), e.Questions...)
	return &cp
}

func cloneAttempt(a *model.Attempt) *model.Attempt {
	cp := *a
	cp.Answers = make(map[string]int, len(a.Answers))
	for k, v := range a.Answers {
		cp.Answers[k] = v
	}
	if a.FinishedAt != nil {
		t := *a.FinishedAt
		cp.FinishedAt = &t
	}
	if a.SubmittedReason != nil {
		r := *a.SubmittedReason
		cp.SubmittedReason = &r
	}
	if a.Score != nil {
		s := *a.Score
		cp.Score = &s
	}
	return &cp
}

// ─── ExamStore ──────────────────────────────────────────────────────

func (s memExams) Create(ctx context.Context, exam *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam.ID = uuid.New()
	now := s.Now()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	for i := range exam.Questions {
		exam.Questions[i].ID = uuid.New()
		exam.Questions[i].ExamID = exam.ID
		exam.Questions[i].OrderNum = i
	}
	s.exams[exam.ID] = cloneExam(exam)
	return nil
}

func (s memExams) Update(ctx context.Context, exam *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.exams[exam.ID]
	if !ok {
		return ErrNotFound
	}
	exam.CreatedAt = existing.CreatedAt
	exam.UpdatedAt = s.Now()
	if exam.Questions == nil {
		exam.Questions = existing.Questions
	} else {
		for i := range exam.Questions {
			if exam.Questions[i].ID == uuid.Nil {
				exam.Questions[i].ID = uuid.New()
			}
			exam.Questions[i].ExamID = exam.ID
			exam.Questions[i].OrderNum = i
		}
	}
	s.exams[exam.ID] = cloneExam(exam)
	return nil
}

func (s memExams) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, ok := s.exams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneExam(exam), nil
}

func (s memExams) List(ctx context.Context) ([]model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exams := make([]model.Exam, 0, len(s.exams))
	for _, e := range s.exams {
		exams = append(exams, *cloneExam(e))
	}
	sort.Slice(exams, func(i, j int) bool {
		return exams[i].UpdatedAt.After(exams[j].UpdatedAt)
	})
	return exams, nil
}

// Delete cascades to assignments, attempts and activity, mirroring the
// ON DELETE CASCADE foreign keys of the SQL schema.
func (s memExams) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exams[id]; !ok {
		return ErrNotFound
	}
	delete(s.exams, id)
	for aid, a := range s.assignments {
		if a.ExamID == id {
			delete(s.assignments, aid)
		}
	}
	for aid, a := range s.attempts {
		if a.ExamID == id {
			delete(s.attempts, aid)
			delete(s.activity, aid)
		}
	}
	return nil
}

// ─── AssignmentStore ────────────────────────────────────────────────

func (s memAssignments) Create(ctx context.Context, a *model.Assignment) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.assignments {
		if existing.ExamID == a.ExamID && existing.StudentID == a.StudentID {
			cp := *existing
			return &cp, nil
		}
	}
	a.ID = uuid.New()
	a.AssignedAt = s.Now()
	cp := *a
	s.assignments[a.ID] = &cp
	return a, nil
}

func (s memAssignments) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID string) (*model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.assignments {
		if a.ExamID == examID && a.StudentID == studentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s memAssignments) Delete(ctx context.Context, examID uuid.UUID, studentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.assignments {
		if a.ExamID == examID && a.StudentID == studentID {
			delete(s.assignments, id)
			return true, nil
		}
	}
	return false, nil
}

func (s memAssignments) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Assignment
	for _, a := range s.assignments {
		if a.ExamID == examID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

func (s memAssignments) ListByStudent(ctx context.Context, studentID string) ([]model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Assignment
	for _, a := range s.assignments {
		if a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	return out, nil
}

// ─── AttemptStore ───────────────────────────────────────────────────

func (s memAttempts) Create(ctx context.Context, attempt *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.attempts {
		if existing.ExamID == attempt.ExamID &&
			existing.StudentID == attempt.StudentID &&
			existing.Status == model.AttemptStatusInProgress {
			return ErrNotFound // mirrors the partial unique index conflict
		}
	}
	attempt.ID = uuid.New()
	attempt.StartedAt = s.Now()
	attempt.Status = model.AttemptStatusInProgress
	if attempt.Answers == nil {
		attempt.Answers = map[string]int{}
	}
	s.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (s memAttempts) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneAttempt(attempt), nil
}

func (s memAttempts) GetInProgress(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.attempts {
		if a.ExamID == examID && a.StudentID == studentID && a.Status == model.AttemptStatusInProgress {
			return cloneAttempt(a), nil
		}
	}
	return nil, ErrNotFound
}

func (s memAttempts) Latest(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *model.Attempt
	for _, a := range s.attempts {
		if a.ExamID != examID || a.StudentID != studentID {
			continue
		}
		if latest == nil || a.StartedAt.After(latest.StartedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return cloneAttempt(latest), nil
}

func (s memAttempts) MergeAnswers(ctx context.Context, id uuid.UUID, partial map[string]int) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[id]
	if !ok || attempt.Status.Terminal() {
		return nil, ErrNotFound
	}
	for k, v := range partial {
		attempt.Answers[k] = v
	}
	return cloneAttempt(attempt), nil
}

func (s memAttempts) AppendActivity(ctx context.Context, id uuid.UUID, entry model.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[id]; !ok {
		return ErrNotFound
	}
	s.activity[id] = append(s.activity[id], entry)
	return nil
}

func (s memAttempts) ListActivity(ctx context.Context, id uuid.UUID) ([]model.ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.ActivityEntry(nil), s.activity[id]...), nil
}

func (s memAttempts) Finalize(ctx context.Context, id uuid.UUID, status model.AttemptStatus, reason model.SubmitReason, finishedAt time.Time, score int) (*model.Attempt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, ok := s.attempts[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if attempt.Status.Terminal() {
		return cloneAttempt(attempt), false, nil
	}
	attempt.Status = status
	attempt.SubmittedReason = &reason
	attempt.FinishedAt = &finishedAt
	attempt.Score = &score
	return cloneAttempt(attempt), true, nil
}

func (s memAttempts) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Attempt
	for _, a := range s.attempts {
		if a.ExamID == examID {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s memAttempts) ListByStudent(ctx context.Context, studentID string) ([]model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Attempt
	for _, a := range s.attempts {
		if a.StudentID == studentID {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}
