package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edustack/securexam-backend/internal/middleware"
	"github.com/edustack/securexam-backend/internal/model"
	"github.com/edustack/securexam-backend/internal/response"
	"github.com/edustack/securexam-backend/internal/service"
	"github.com/edustack/securexam-backend/internal/validator"
)

// LockdownFlagHeader is the out-of-band marker the restricted-browser client
// sends alongside its user agent. Either signal is enough to pass the gate.
const LockdownFlagHeader = "X-Lockdown-Client"

// StudentPortalHandler handles the student-facing exam endpoints.
type StudentPortalHandler struct {
	assignmentService *service.AssignmentService
	attemptService    *service.AttemptService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(assignmentService *service.AssignmentService, attemptService *service.AttemptService) *StudentPortalHandler {
	return &StudentPortalHandler{
		assignmentService: assignmentService,
		attemptService:    attemptService,
	}
}

// examView is the student-safe projection of an exam definition.
type examView struct {
	ID                    uuid.UUID `json:"id"`
	Title                 string    `json:"title"`
	Description           string    `json:"description"`
	DurationMinutes       int       `json:"duration_minutes"`
	EnabledLockdown       bool      `json:"enabled_lockdown"`
	AutoSubmitOnFocusLoss bool      `json:"auto_submit_on_focus_loss"`
}

func toExamView(exam *model.Exam) examView {
	return examView{
		ID:                    exam.ID,
		Title:                 exam.Title,
		Description:           exam.Description,
		DurationMinutes:       exam.DurationMinutes,
		EnabledLockdown:       exam.EnabledLockdown,
		AutoSubmitOnFocusLoss: exam.AutoSubmitOnFocusLoss,
	}
}

// ListAssignedExams godoc
// GET /api/v1/portal/exams
func (h *StudentPortalHandler) ListAssignedExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	assigned, err := h.assignmentService.ListForStudent(c.Request.Context(), claims.UserID())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	views := make([]gin.H, 0, len(assigned))
	for _, a := range assigned {
		views = append(views, gin.H{
			"exam":       toExamView(&a.Exam),
			"assignment": a.Assignment,
		})
	}
	response.Success(c, http.StatusOK, gin.H{"exams": views})
}

// EnterExam godoc
// POST /api/v1/portal/exams/:exam_id/enter
// Starts a new attempt or resumes the existing one. The response carries the
// student-safe exam, the shuffled questions and the resume state. Re-entering
// never resets the clock.
func (h *StudentPortalHandler) EnterExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, exam, err := h.attemptService.StartOrResume(
		c.Request.Context(),
		examID,
		claims.UserID(),
		c.Request.UserAgent(),
		c.GetHeader(LockdownFlagHeader),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAssigned):
			response.Fail(c, http.StatusForbidden, response.ErrExamNotAssigned)
		case errors.Is(err, service.ErrLockdownRequired):
			response.Fail(c, http.StatusForbidden, response.ErrLockdownRequired)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), examID, claims.UserID())
	if err != nil {
		if errors.Is(err, service.ErrNoAttempt) {
			// The attempt finalized between start and state read.
			response.Success(c, http.StatusOK, gin.H{
				"exam":    toExamView(exam),
				"attempt": attempt,
			})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam":      toExamView(exam),
		"questions": h.attemptService.QuestionsForStudent(exam, claims.UserID()),
		"state":     state,
	})
}

// GetExamState godoc
// GET /api/v1/portal/exams/:exam_id/state
// Returns the resume payload: merged answers plus remaining seconds computed
// from the persisted start time.
func (h *StudentPortalHandler) GetExamState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), examID, claims.UserID())
	if err != nil {
		if errors.Is(err, service.ErrNoAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// UpdateAnswers godoc
// PATCH /api/v1/portal/attempts/:attempt_id/answers
// HTTP fallback for clients whose WebSocket dropped. Last write per question
// wins.
func (h *StudentPortalHandler) UpdateAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.UpdateAnswers(c.Request.Context(), attemptID, claims.UserID(), req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoAttempt):
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		case errors.Is(err, service.ErrAttemptTerminal):
			response.Fail(c, http.StatusConflict, response.ErrAttemptFinalized)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// SubmitAttempt godoc
// POST /api/v1/portal/attempts/:attempt_id/submit
// Finalizes the attempt. Submitting twice returns the already-stored result.
func (h *StudentPortalHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Finalize(c.Request.Context(), attemptID, claims.UserID(), model.ReasonSubmitted)
	if err != nil {
		if errors.Is(err, service.ErrNoAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrFinalizeNotSaved)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ListMyAttempts godoc
// GET /api/v1/portal/attempts
// Returns the student's attempt history across all exams, newest first.
func (h *StudentPortalHandler) ListMyAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), claims.UserID())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetResult godoc
// GET /api/v1/portal/exams/:exam_id/result
// Returns the latest attempt with its score once it is terminal.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Latest(c.Request.Context(), examID, claims.UserID())
	if err != nil {
		if errors.Is(err, service.ErrNoAttempt) {
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}
