package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/config"
	"github.com/edustack/securexam-backend/internal/model"
	"github.com/edustack/securexam-backend/internal/repository"
	"github.com/edustack/securexam-backend/internal/scoring"
	"github.com/edustack/securexam-backend/internal/session"
	"github.com/edustack/securexam-backend/internal/shuffle"
)

// Domain errors.
var (
	ErrLockdownRequired = errors.New("exam requires the lockdown browser client")
	ErrAttemptTerminal  = errors.New("attempt is already finalized")
	ErrNoAttempt        = errors.New("no attempt exists for this exam")
)

// AttemptService owns the attempt lifecycle: start, resume, answer merging,
// activity logging and the one-way transition to a terminal status.
type AttemptService struct {
	attempts    repository.AttemptStore
	assignments repository.AssignmentStore
	exams       repository.ExamStore
	rdb         *redis.Client
	log         zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts repository.AttemptStore,
	assignments repository.AssignmentStore,
	exams repository.ExamStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:    attempts,
		assignments: assignments,
		exams:       exams,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
		now:         time.Now,
	}
}

// gate resolves the exam only when the student holds an assignment for it.
// A missing exam and a missing assignment are indistinguishable to callers.
func (s *AttemptService) gate(ctx context.Context, examID uuid.UUID, studentID string) (*model.Exam, error) {
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

// StartOrResume returns the student's in-progress attempt for the exam,
// creating one on first entry. Re-entering never resets the clock: the
// persisted start time stays authoritative, and an attempt whose deadline
// already passed is finalized as time_expired before it is returned.
func (s *AttemptService) StartOrResume(ctx context.Context, examID uuid.UUID, studentID, userAgent, lockdownFlag string) (*model.Attempt, *model.Exam, error) {
	exam, err := s.gate(ctx, examID, studentID)
	if err != nil {
		return nil, nil, err
	}

	isLockdown := session.DetectLockdownClient(userAgent, lockdownFlag)
	if exam.EnabledLockdown && !isLockdown {
		return nil, nil, ErrLockdownRequired
	}

	existing, err := s.attempts.GetInProgress(ctx, examID, studentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		// Resume path. Re-warm the start cache so state reads stay fast.
		s.cacheStart(ctx, existing)
		if session.Remaining(existing.StartedAt, exam.DurationMinutes, s.now()) <= 0 {
			finalized, err := s.finalize(ctx, existing, exam, model.ReasonTimeExpired)
			if err != nil {
				return nil, nil, err
			}
			return finalized, exam, nil
		}
		return existing, exam, nil
	}

	attempt := &model.Attempt{
		ExamID:           examID,
		StudentID:        studentID,
		Status:           model.AttemptStatusInProgress,
		StartedAt:        s.now(),
		Answers:          map[string]int{},
		UserAgent:        userAgent,
		IsLockdownClient: isLockdown,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a concurrent start; the other one is the attempt.
			winner, fetchErr := s.attempts.GetInProgress(ctx, examID, studentID)
			if fetchErr != nil {
				return nil, nil, fmt.Errorf("concurrent start, fetch winner: %w", fetchErr)
			}
			s.cacheStart(ctx, winner)
			return winner, exam, nil
		}
		return nil, nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheStart(ctx, attempt)
	if err := s.attempts.AppendActivity(ctx, attempt.ID, model.ActivityEntry{
		Timestamp: attempt.StartedAt,
		Event:     model.ActivityExamStarted,
	}); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("failed to log exam_started")
	}
	s.enqueueAudit(ctx, attempt, model.ActivityExamStarted, "")

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Bool("lockdown_client", isLockdown).
		Msg("attempt started")
	return attempt, exam, nil
}

// State returns the resume payload for the student's in-progress attempt:
// merged answers plus remaining seconds recomputed from the persisted start
// time. The start time is served from Redis when warm, with Postgres as the
// source of truth and a self-heal write on cache miss.
func (s *AttemptService) State(ctx context.Context, examID uuid.UUID, studentID string) (*model.AttemptState, error) {
	attempt, err := s.attempts.GetInProgress(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoAttempt
		}
		return nil, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	startedAt, err := s.resolveStart(ctx, attempt)
	if err != nil {
		return nil, err
	}

	remaining := session.Remaining(startedAt, exam.DurationMinutes, s.now())
	if remaining <= 0 {
		finalized, err := s.finalize(ctx, attempt, exam, model.ReasonTimeExpired)
		if err != nil {
			return nil, err
		}
		return &model.AttemptState{
			AttemptID:        finalized.ID,
			ExamID:           finalized.ExamID,
			StudentID:        finalized.StudentID,
			Status:           finalized.Status,
			Answers:          finalized.Answers,
			RemainingSeconds: 0,
		}, nil
	}

	return &model.AttemptState{
		AttemptID:        attempt.ID,
		ExamID:           attempt.ExamID,
		StudentID:        attempt.StudentID,
		Status:           attempt.Status,
		Answers:          attempt.Answers,
		RemainingSeconds: remaining,
	}, nil
}

// resolveStart reads the attempt start time from Redis, falling back to the
// attempt row and self-healing the cache.
func (s *AttemptService) resolveStart(ctx context.Context, attempt *model.Attempt) (time.Time, error) {
	key := config.CacheKey.AttemptStartKey(attempt.ExamID.String(), attempt.StudentID)

	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		s.cacheStart(ctx, attempt)
		return attempt.StartedAt, nil
	}
	if err != nil {
		// Redis down is not fatal; the row already carries the truth.
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("start cache read failed")
		return attempt.StartedAt, nil
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return attempt.StartedAt, nil
	}
	return time.Unix(unix, 0), nil
}

func (s *AttemptService) cacheStart(ctx context.Context, attempt *model.Attempt) {
	key := config.CacheKey.AttemptStartKey(attempt.ExamID.String(), attempt.StudentID)
	if err := s.rdb.Set(ctx, key, attempt.StartedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("start cache write failed")
	}
}

// UpdateAnswers merges partial answers into an in-progress attempt.
// Last write per question wins; a terminal attempt rejects the merge.
func (s *AttemptService) UpdateAnswers(ctx context.Context, attemptID uuid.UUID, studentID string, answers map[string]int) (*model.Attempt, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.Terminal() {
		return nil, ErrAttemptTerminal
	}

	merged, err := s.attempts.MergeAnswers(ctx, attemptID, answers)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Finalized between the read and the merge.
			return nil, ErrAttemptTerminal
		}
		return nil, fmt.Errorf("merge answers: %w", err)
	}
	return merged, nil
}

// RecordActivity appends one entry to the attempt's activity log and queues
// it for the asynchronous audit trail. Recording on a terminal attempt is a
// silent no-op so late browser events never error.
func (s *AttemptService) RecordActivity(ctx context.Context, attemptID uuid.UUID, studentID, event, details string) error {
	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return err
	}
	if attempt.Status.Terminal() {
		return nil
	}

	if err := s.attempts.AppendActivity(ctx, attemptID, model.ActivityEntry{
		Timestamp: s.now(),
		Event:     event,
		Details:   details,
	}); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	s.enqueueAudit(ctx, attempt, event, details)
	return nil
}

// Finalize moves an attempt to its terminal status, scoring it against the
// canonical question list. Finalizing an already-terminal attempt returns
// the stored record untouched: the first finalize wins.
func (s *AttemptService) Finalize(ctx context.Context, attemptID uuid.UUID, studentID string, reason model.SubmitReason) (*model.Attempt, error) {
	attempt, err := s.ownedAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.Terminal() {
		return attempt, nil
	}

	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, attempt, exam, reason)
}

func (s *AttemptService) finalize(ctx context.Context, attempt *model.Attempt, exam *model.Exam, reason model.SubmitReason) (*model.Attempt, error) {
	status := model.AttemptStatusAutoSubmitted
	if reason == model.ReasonSubmitted {
		status = model.AttemptStatusSubmitted
	}

	// Score from the latest stored answers, not the snapshot the caller read.
	current, err := s.attempts.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	score := scoring.Score(exam.Questions, current.Answers)

	finishedAt := s.now()
	final, finalized, err := s.attempts.Finalize(ctx, attempt.ID, status, reason, finishedAt, score)
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}
	if !finalized {
		// Someone else won the race; their result stands.
		return final, nil
	}

	if err := s.attempts.AppendActivity(ctx, final.ID, model.ActivityEntry{
		Timestamp: finishedAt,
		Event:     model.ActivityExamSubmitted,
		Details:   string(reason),
	}); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", final.ID.String()).Msg("failed to log exam_submitted")
	}
	s.enqueueAudit(ctx, final, model.ActivityExamSubmitted, string(reason))

	if err := s.rdb.Del(ctx, config.CacheKey.AttemptStartKey(final.ExamID.String(), final.StudentID)).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", final.ID.String()).Msg("failed to drop start cache")
	}

	s.log.Info().
		Str("attempt_id", final.ID.String()).
		Str("status", string(status)).
		Str("reason", string(reason)).
		Int("score", score).
		Msg("attempt finalized")
	return final, nil
}

// Latest returns the most recent attempt for the pair, terminal or not.
func (s *AttemptService) Latest(ctx context.Context, examID uuid.UUID, studentID string) (*model.Attempt, error) {
	attempt, err := s.attempts.Latest(ctx, examID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoAttempt
		}
		return nil, err
	}
	return attempt, nil
}

// Activity lists the attempt's activity log in insertion order.
func (s *AttemptService) Activity(ctx context.Context, attemptID uuid.UUID) ([]model.ActivityEntry, error) {
	entries, err := s.attempts.ListActivity(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.ActivityEntry{}
	}
	return entries, nil
}

// ListByExam lists every attempt against one exam, for admin review.
func (s *AttemptService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	attempts, err := s.attempts.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// ListByStudent lists every attempt a student has made, newest first.
func (s *AttemptService) ListByStudent(ctx context.Context, studentID string) ([]model.Attempt, error) {
	attempts, err := s.attempts.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// QuestionsForStudent returns the exam's questions in the student's stable
// shuffled order, answers stripped. The same (exam, student) pair always
// sees the same order across reloads and devices.
func (s *AttemptService) QuestionsForStudent(exam *model.Exam, studentID string) []model.QuestionForStudent {
	shuffled := shuffle.Questions(exam.ID, studentID, exam.Questions)
	out := make([]model.QuestionForStudent, len(shuffled))
	for i, q := range shuffled {
		out[i] = q.ForStudent()
	}
	return out
}

func (s *AttemptService) ownedAttempt(ctx context.Context, attemptID uuid.UUID, studentID string) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoAttempt
		}
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, ErrNoAttempt
	}
	return attempt, nil
}

// enqueueAudit pushes the event onto the Redis list drained by the audit
// worker. Losing an audit entry is tolerable; failing the hot path is not.
func (s *AttemptService) enqueueAudit(ctx context.Context, attempt *model.Attempt, event, details string) {
	payload, err := json.Marshal(model.AuditEvent{
		AttemptID:  attempt.ID,
		ExamID:     attempt.ExamID,
		StudentID:  attempt.StudentID,
		Event:      event,
		Details:    details,
		OccurredAt: s.now(),
	})
	if err != nil {
		return
	}
	if err := s.rdb.LPush(ctx, config.WorkerKey.PersistAuditEventsQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("audit enqueue failed")
	}
}
