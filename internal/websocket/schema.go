package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest merges one or more answers into the attempt.
type AnswerRequest struct {
	Action  Action         `json:"action"`
	Answers map[string]int `json:"answers"`
}

// ViolationRequest reports a browser-side integrity signal. Kind maps onto a
// session event: visibility_hidden, window_blur, clipboard_attempt or
// context_menu.
type ViolationRequest struct {
	Action  Action `json:"action"`
	Kind    string `json:"kind"`
	Details string `json:"details"`
}

// SubmitRequest asks to finalize the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventTick      Event = "tick"
	EventSubmitted Event = "submitted"
	EventDenied    Event = "denied"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse is pushed once after the handshake with the full resume
// payload.
type StateResponse struct {
	Event            Event          `json:"event"`
	AttemptID        string         `json:"attempt_id"`
	Status           string         `json:"status"`
	Answers          map[string]int `json:"answers"`
	RemainingSeconds int            `json:"remaining_seconds"`
	Countdown        string         `json:"countdown"`
}

// TickResponse carries the countdown, pushed once per second.
type TickResponse struct {
	Event            Event  `json:"event"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Countdown        string `json:"countdown"`
}

// SubmittedResponse announces the terminal status; the connection closes
// after it.
type SubmittedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// DeniedResponse is sent when the session gate rejects the connection.
type DeniedResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
