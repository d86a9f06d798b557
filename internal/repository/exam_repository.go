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

// ExamRepository is the PostgreSQL ExamStore.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

var _ ExamStore = (*ExamRepository)(nil)

// Create inserts a new exam together with its questions.
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (title, description, duration_minutes, enabled_lockdown,
		                    auto_submit_on_focus_loss, exit_password, config_password,
		                    allowed_url, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		exam.Title, exam.Description, exam.DurationMinutes, exam.EnabledLockdown,
		exam.AutoSubmitOnFocusLoss, exam.ExitPassword, exam.ConfigPassword,
		exam.AllowedURL, exam.CreatedBy,
	).Scan(&exam.ID, &exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	if err := insertQuestions(ctx, tx, exam.ID, exam.Questions); err != nil {
		return err
	}
	for i := range exam.Questions {
		exam.Questions[i].ExamID = exam.ID
	}

	return tx.Commit(ctx)
}

// Update rewrites exam fields and, when exam.Questions is non-nil, replaces
// the full question list.
func (r *ExamRepository) Update(ctx context.Context, exam *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE exams
		 SET title = $2, description = $3, duration_minutes = $4,
		     enabled_lockdown = $5, auto_submit_on_focus_loss = $6,
		     exit_password = $7, config_password = $8, allowed_url = $9,
		     updated_at = NOW()
		 WHERE id = $1`,
		exam.ID, exam.Title, exam.Description, exam.DurationMinutes,
		exam.EnabledLockdown, exam.AutoSubmitOnFocusLoss,
		exam.ExitPassword, exam.ConfigPassword, exam.AllowedURL,
	)
	if err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if exam.Questions != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM exam_questions WHERE exam_id = $1`, exam.ID); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		if err := insertQuestions(ctx, tx, exam.ID, exam.Questions); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func insertQuestions(ctx context.Context, tx pgx.Tx, examID uuid.UUID, questions []model.Question) error {
	for i := range questions {
		q := &questions[i]
		q.OrderNum = i
		err := tx.QueryRow(ctx,
			`INSERT INTO exam_questions (exam_id, question_text, options, correct_option_index, order_num)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			examID, q.QuestionText, q.Options, q.CorrectOptionIndex, q.OrderNum,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
		q.ExamID = examID
	}
	return nil
}

// GetByID retrieves an exam with its canonical (unshuffled) question list.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	exam := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, duration_minutes, enabled_lockdown,
		        auto_submit_on_focus_loss, exit_password, config_password,
		        allowed_url, created_by, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&exam.ID, &exam.Title, &exam.Description, &exam.DurationMinutes,
		&exam.EnabledLockdown, &exam.AutoSubmitOnFocusLoss, &exam.ExitPassword,
		&exam.ConfigPassword, &exam.AllowedURL, &exam.CreatedBy,
		&exam.CreatedAt, &exam.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, options, correct_option_index, order_num
		 FROM exam_questions
		 WHERE exam_id = $1
		 ORDER BY order_num ASC`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.Options, &q.CorrectOptionIndex, &q.OrderNum); err != nil {
			return nil, err
		}
		exam.Questions = append(exam.Questions, q)
	}
	return exam, rows.Err()
}

// List retrieves all exams without their question bodies, newest first.
func (r *ExamRepository) List(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, duration_minutes, enabled_lockdown,
		        auto_submit_on_focus_loss, created_by, created_at, updated_at
		 FROM exams
		 ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.DurationMinutes,
			&e.EnabledLockdown, &e.AutoSubmitOnFocusLoss, &e.CreatedBy,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Delete removes the exam. Assignments, attempts, questions and activity rows
// go with it through ON DELETE CASCADE.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
