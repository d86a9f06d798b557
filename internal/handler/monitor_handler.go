package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/config"
	"github.com/edustack/securexam-backend/internal/model"
	"github.com/edustack/securexam-backend/internal/response"
	"github.com/edustack/securexam-backend/internal/service"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams live session events to proctors over SSE. Events
// fan out through the exam's Redis monitor channel, so every replica of the
// service feeds every attached proctor.
type MonitorHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, examService *service.ExamService, attemptService *service.AttemptService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		examService:    examService,
		attemptService: attemptService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:exam_id/monitor
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, examID, exam)

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(examID.String()))
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Str("exam_id", examID.String()).Msg("proctor attached to monitor")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("proctor detached from monitor")
			return

		case msg := <-ch:
			// Forward raw JSON without re-decoding.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAlive.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the initial attempt roster before live events start.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, examID uuid.UUID, exam *model.Exam) {
	attempts, err := h.attemptService.ListByExam(c.Request.Context(), examID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("snapshot query failed")
		attempts = []model.Attempt{}
	}

	inProgress := 0
	finished := 0
	roster := make([]gin.H, 0, len(attempts))
	for _, a := range attempts {
		if a.Status == model.AttemptStatusInProgress {
			inProgress++
		} else {
			finished++
		}
		roster = append(roster, gin.H{
			"attempt_id":      a.ID.String(),
			"student_id":      a.StudentID,
			"status":          a.Status,
			"started_at":      a.StartedAt,
			"score":           a.Score,
			"lockdown_client": a.IsLockdownClient,
		})
	}

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam": gin.H{
				"id":       exam.ID.String(),
				"title":    exam.Title,
				"duration": exam.DurationMinutes,
			},
			"stats": gin.H{
				"total":       len(attempts),
				"in_progress": inProgress,
				"finished":    finished,
			},
			"attempts": roster,
		},
	})
	c.Writer.Flush()
}
