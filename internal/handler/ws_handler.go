package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edustack/securexam-backend/internal/config"
	"github.com/edustack/securexam-backend/internal/middleware"
	"github.com/edustack/securexam-backend/internal/model"
	"github.com/edustack/securexam-backend/internal/response"
	"github.com/edustack/securexam-backend/internal/service"
	"github.com/edustack/securexam-backend/internal/session"
	ws "github.com/edustack/securexam-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// violationEvents maps the browser's reported violation kinds onto the
// session machine's event types. Unknown kinds are rejected.
var violationEvents = map[string]session.EventType{
	"visibility_hidden": session.EventVisibilityHidden,
	"window_blur":       session.EventWindowBlur,
	"clipboard_attempt": session.EventClipboardAttempt,
	"context_menu":      session.EventContextMenu,
}

// WSHandler owns the live attempt stream: one WebSocket per active attempt,
// with the tick loop, policy decisions and auto-submission all server-side.
type WSHandler struct {
	rdb            *redis.Client
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// attemptConn is the per-connection session.Sink. Writes go through a mutex
// because the ticker goroutine and the read loop share the connection.
type attemptConn struct {
	handler *WSHandler
	conn    *websocket.Conn
	attempt *model.Attempt
	log     zerolog.Logger

	writeMu sync.Mutex
}

func (a *attemptConn) write(v interface{}) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := ws.WriteTyped(a.conn, v); err != nil {
		a.log.Debug().Err(err).Msg("websocket write failed")
	}
}

// LogActivity implements session.Sink.
func (a *attemptConn) LogActivity(event, details string) {
	ctx := context.Background()
	if err := a.handler.attemptService.RecordActivity(ctx, a.attempt.ID, a.attempt.StudentID, event, details); err != nil {
		a.log.Warn().Err(err).Str("event", event).Msg("failed to record activity")
	}
	a.handler.publishMonitor(ctx, a.attempt, event, details)
}

// Finalize implements session.Sink.
func (a *attemptConn) Finalize(reason model.SubmitReason) error {
	ctx := context.Background()
	final, err := a.handler.attemptService.Finalize(ctx, a.attempt.ID, a.attempt.StudentID, reason)
	if err != nil {
		a.write(ws.ErrorResponse{
			Event: ws.EventError,
			Error: response.GetMessage(response.ErrFinalizeNotSaved),
		})
		return err
	}

	a.write(ws.SubmittedResponse{
		Event:  ws.EventSubmitted,
		Status: string(final.Status),
		Reason: string(reason),
	})
	a.handler.publishMonitor(ctx, final, model.ActivityExamSubmitted, string(reason))
	return nil
}

// Countdown implements session.Sink.
func (a *attemptConn) Countdown(remainingSeconds int) {
	a.write(ws.TickResponse{
		Event:            ws.EventTick,
		RemainingSeconds: remainingSeconds,
		Countdown:        session.FormatCountdown(remainingSeconds),
	})
}

// AttemptStream godoc
// WS /ws/v1/portal/exams/:exam_id/stream?token=...
// Upgrades to WebSocket and drives the attempt session: the server owns the
// clock, the browser only reports named events and answers.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	userAgent := c.Request.UserAgent()
	lockdownFlag := c.Query("lockdown")
	if lockdownFlag == "" {
		lockdownFlag = c.GetHeader(LockdownFlagHeader)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID()
	wsLog := h.log.With().
		Str("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	ac := &attemptConn{handler: h, conn: conn, log: wsLog}

	attempt, exam, err := h.attemptService.StartOrResume(c.Request.Context(), examID, studentID, userAgent, lockdownFlag)
	if err != nil {
		ac.write(ws.DeniedResponse{Event: ws.EventDenied, Code: deniedCode(err)})
		return
	}
	ac.attempt = attempt

	policy := session.Policy{
		AutoSubmitOnFocusLoss: exam.AutoSubmitOnFocusLoss,
		Deadline:              session.Deadline(attempt.StartedAt, exam.DurationMinutes),
	}
	ctrl := session.NewController(policy, ac)
	defer ctrl.Stop()

	if attempt.Status.Terminal() {
		reason := ""
		if attempt.SubmittedReason != nil {
			reason = string(*attempt.SubmittedReason)
		}
		ac.write(ws.SubmittedResponse{
			Event:  ws.EventSubmitted,
			Status: string(attempt.Status),
			Reason: reason,
		})
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), examID, studentID)
	if err != nil {
		ac.write(ws.DeniedResponse{Event: ws.EventDenied, Code: string(response.ErrAttemptNotFound)})
		return
	}
	ac.write(ws.StateResponse{
		Event:            ws.EventState,
		AttemptID:        attempt.ID.String(),
		Status:           string(state.Status),
		Answers:          state.Answers,
		RemainingSeconds: state.RemainingSeconds,
		Countdown:        session.FormatCountdown(state.RemainingSeconds),
	})

	ctrl.Activate()
	h.publishMonitor(c.Request.Context(), attempt, "attempt_connected", "")
	wsLog.Info().Str("attempt_id", attempt.ID.String()).Msg("student connected")

	h.readLoop(ac, ctrl, wsLog)
	wsLog.Info().Str("attempt_id", attempt.ID.String()).Msg("student disconnected")
}

func (h *WSHandler) readLoop(ac *attemptConn, ctrl *session.Controller, wsLog zerolog.Logger) {
	for {
		if ctrl.State().Terminal() {
			ws.WriteClose(ac.conn, string(ctrl.State()))
			return
		}

		var raw json.RawMessage
		if err := ws.ReadJSON(ac.conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("unexpected close")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(ac.conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ac, raw)
		case ws.ActionViolation:
			h.handleViolation(ac, ctrl, raw)
		case ws.ActionSubmit:
			h.handleSubmit(ac, ctrl)
		case ws.ActionPing:
			ac.write(ws.PongResponse{Event: ws.EventPong})
		default:
			ac.write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(envelope.Action)})
		}
	}
}

func (h *WSHandler) handleAnswer(ac *attemptConn, raw json.RawMessage) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil || len(req.Answers) == 0 {
		ac.write(ws.ErrorResponse{Event: ws.EventError, Error: "answers are required"})
		return
	}

	// Question keys must be well-formed UUIDs; everything else is noise.
	for qid := range req.Answers {
		if _, err := uuid.Parse(qid); err != nil {
			ac.write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid question id"})
			return
		}
	}

	_, err := h.attemptService.UpdateAnswers(context.Background(), ac.attempt.ID, ac.attempt.StudentID, req.Answers)
	if err != nil {
		if errors.Is(err, service.ErrAttemptTerminal) {
			ac.write(ws.ErrorResponse{Event: ws.EventError, Error: response.GetMessage(response.ErrAttemptFinalized)})
			return
		}
		ac.log.Error().Err(err).Msg("answer merge failed")
		ac.write(ws.ErrorResponse{Event: ws.EventError, Error: "save failed"})
	}
}

func (h *WSHandler) handleViolation(ac *attemptConn, ctrl *session.Controller, raw json.RawMessage) {
	var req ws.ViolationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ac.write(ws.ErrorResponse{Event: ws.EventError, Error: "malformed violation"})
		return
	}

	evType, ok := violationEvents[req.Kind]
	if !ok {
		ac.write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown violation kind: " + req.Kind})
		return
	}

	if _, err := ctrl.Handle(session.Event{Type: evType, Details: req.Details}); err != nil {
		ac.log.Error().Err(err).Str("kind", req.Kind).Msg("violation finalize not persisted")
	}
}

func (h *WSHandler) handleSubmit(ac *attemptConn, ctrl *session.Controller) {
	if _, err := ctrl.Handle(session.Event{Type: session.EventSubmitRequested}); err != nil {
		ac.log.Error().Err(err).Msg("submit finalize not persisted")
	}
}

// publishMonitor fans a session event out to proctors subscribed to the
// exam's monitor channel. Failures are logged and swallowed.
func (h *WSHandler) publishMonitor(ctx context.Context, attempt *model.Attempt, event, details string) {
	payload, err := json.Marshal(gin.H{
		"attempt_id": attempt.ID.String(),
		"student_id": attempt.StudentID,
		"event":      event,
		"details":    details,
	})
	if err != nil {
		return
	}
	channel := config.CacheKey.ExamMonitorChannel(attempt.ExamID.String())
	if err := h.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		h.log.Debug().Err(err).Msg("monitor publish failed")
	}
}

func deniedCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNotAssigned):
		return string(response.ErrExamNotAssigned)
	case errors.Is(err, service.ErrLockdownRequired):
		return string(response.ErrLockdownRequired)
	default:
		return string(response.ErrInternal)
	}
}
