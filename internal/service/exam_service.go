package service

import (
	"context"
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
)

// Domain errors.
var (
	ErrInvalidQuestion = errors.New("question needs at least one option and a correct index inside the option range")
)

// Placeholder passwords written into generated lockdown configs when the exam
// author left the real ones blank. The original template files shipped with
// these exact markers so admins know what to replace.
const (
	placeholderExitPassword   = "CHANGE_ME_EXIT_PASSWORD"
	placeholderConfigPassword = "OPTIONAL_CONFIG_PASSWORD"
)

const examDurationCacheTTL = 24 * time.Hour

// ExamService handles exam definition business logic.
type ExamService struct {
	exams repository.ExamStore
	rdb   *redis.Client
	cfg   *config.Config
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams repository.ExamStore, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams: exams,
		rdb:   rdb,
		cfg:   cfg,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

// validateQuestions rejects questions with empty option lists or an answer
// index outside the options.
func validateQuestions(questions []model.CreateQuestionRequest) error {
	for i, q := range questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("question %d: %w", i, ErrInvalidQuestion)
		}
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			return fmt.Errorf("question %d: %w", i, ErrInvalidQuestion)
		}
	}
	return nil
}

func buildQuestions(questions []model.CreateQuestionRequest) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		out[i] = model.Question{
			QuestionText:       q.QuestionText,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
			OrderNum:           i,
		}
	}
	return out
}

// Create inserts a new exam with its questions.
func (s *ExamService) Create(ctx context.Context, req *model.CreateExamRequest, createdBy string) (*model.Exam, error) {
	if err := validateQuestions(req.Questions); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		Title:                 req.Title,
		Description:           req.Description,
		DurationMinutes:       req.DurationMinutes,
		EnabledLockdown:       req.EnabledLockdown,
		AutoSubmitOnFocusLoss: req.AutoSubmitOnFocusLoss,
		ExitPassword:          req.ExitPassword,
		ConfigPassword:        req.ConfigPassword,
		AllowedURL:            req.AllowedURL,
		CreatedBy:             createdBy,
		Questions:             buildQuestions(req.Questions),
	}

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.cacheDuration(ctx, exam)
	s.log.Info().Str("exam_id", exam.ID.String()).Str("created_by", createdBy).Msg("exam created")
	return exam, nil
}

// Update applies a partial update. Nil pointer fields keep their current
// values; a non-nil Questions slice replaces the full question list.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.Description != nil {
		exam.Description = *req.Description
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	if req.EnabledLockdown != nil {
		exam.EnabledLockdown = *req.EnabledLockdown
	}
	if req.AutoSubmitOnFocusLoss != nil {
		exam.AutoSubmitOnFocusLoss = *req.AutoSubmitOnFocusLoss
	}
	if req.ExitPassword != nil {
		exam.ExitPassword = *req.ExitPassword
	}
	if req.ConfigPassword != nil {
		exam.ConfigPassword = *req.ConfigPassword
	}
	if req.AllowedURL != nil {
		exam.AllowedURL = *req.AllowedURL
	}

	if req.Questions != nil {
		if err := validateQuestions(req.Questions); err != nil {
			return nil, err
		}
		exam.Questions = buildQuestions(req.Questions)
	} else {
		// Leave the stored question list untouched.
		exam.Questions = nil
	}

	if err := s.exams.Update(ctx, exam); err != nil {
		return nil, err
	}

	updated, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheDuration(ctx, updated)
	return updated, nil
}

// GetByID retrieves an exam with its full question list, answers included.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, id)
}

// List retrieves all exams, newest first.
func (s *ExamService) List(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Delete removes an exam and everything hanging off it.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.exams.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, config.CacheKey.ExamDurationKey(id.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("failed to drop duration cache")
	}
	s.log.Info().Str("exam_id", id.String()).Msg("exam deleted")
	return nil
}

// DurationMinutes resolves an exam's duration, serving from Redis when warm
// and falling back to Postgres, re-warming the cache on the way out.
func (s *ExamService) DurationMinutes(ctx context.Context, id uuid.UUID) (int, error) {
	key := config.CacheKey.ExamDurationKey(id.String())
	if raw, err := s.rdb.Get(ctx, key).Result(); err == nil {
		if minutes, convErr := strconv.Atoi(raw); convErr == nil && minutes > 0 {
			return minutes, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("duration cache read failed")
	}

	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	s.cacheDuration(ctx, exam)
	return exam.DurationMinutes, nil
}

func (s *ExamService) cacheDuration(ctx context.Context, exam *model.Exam) {
	key := config.CacheKey.ExamDurationKey(exam.ID.String())
	if err := s.rdb.Set(ctx, key, strconv.Itoa(exam.DurationMinutes), examDurationCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("duration cache write failed")
	}
}

// LockdownConfig builds the config blob for the restricted-browser client.
// The blob is advisory: the engine generates it, the external browser
// enforces it.
func (s *ExamService) LockdownConfig(ctx context.Context, id uuid.UUID) (*model.LockdownConfig, error) {
	exam, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	startURL := fmt.Sprintf("%s/secure-exam/%s", s.cfg.PublicBaseURL, exam.ID)
	whitelist := []string{s.cfg.PublicBaseURL}
	if exam.AllowedURL != "" {
		whitelist = append(whitelist, exam.AllowedURL)
	}

	quitPassword := exam.ExitPassword
	if quitPassword == "" {
		quitPassword = placeholderExitPassword
	}
	settingsPassword := exam.ConfigPassword
	if settingsPassword == "" {
		settingsPassword = placeholderConfigPassword
	}

	return &model.LockdownConfig{
		StartURL:               startURL,
		Mode:                   "kiosk",
		AllowURLFilter:         true,
		WhitelistURL:           whitelist,
		AllowSwitchToApps:      false,
		AllowBrowserToolbar:    false,
		AllowPrintScreen:       false,
		EnablePrivateClipboard: true,
		AllowCopyPaste:         false,
		AllowRightClick:        false,
		ShowTaskBar:            false,
		AllowSpellCheck:        false,
		QuitPassword:           quitPassword,
		SettingsPassword:       settingsPassword,
		Notes:                  fmt.Sprintf("Auto-generated config for exam %q. Distribute to exam machines before the session.", exam.Title),
	}, nil
}
