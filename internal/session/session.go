// Package session implements the lockdown session state machine that runs
// for the lifetime of an exam attempt.
//
// The machine itself is a pure reducer free of platform and transport APIs:
// event adapters (the WebSocket handler, tests) feed named events in and act
// on the returned transition. The runtime Controller wraps the reducer with
// the 1-second countdown ticker and serialized event delivery.
package session

import (
	"fmt"
	"time"

	"github.com/edustack/securexam-backend/internal/model"
)

// State is the lockdown session state.
type State string

const (
	// StateLoading is the initial state while access is being gated.
	StateLoading State = "loading"
	// StateDenied is terminal: access was never granted, no attempt exists.
	StateDenied State = "denied"
	// StateActive means the timer is running and input is accepted.
	StateActive State = "active"
	// StateSubmitted is terminal: the attempt is finalized and read-only.
	StateSubmitted State = "submitted"
)

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StateDenied || s == StateSubmitted
}

// EventType names the events the reducer understands.
type EventType string

const (
	EventTick             EventType = "tick"
	EventVisibilityHidden EventType = "visibility_hidden"
	EventWindowBlur       EventType = "window_blur"
	EventClipboardAttempt EventType = "clipboard_attempt"
	EventContextMenu      EventType = "context_menu"
	EventSubmitRequested  EventType = "submit_requested"
)

// Event is one input to the reducer.
type Event struct {
	Type EventType
	At   time.Time
	// Details carries free-form context, e.g. which clipboard operation
	// was suppressed (copy/cut/paste).
	Details string
}

// Policy captures the per-exam rules the reducer enforces.
type Policy struct {
	// AutoSubmitOnFocusLoss forces finalization when the page is hidden
	// or the window loses input focus. Without it those events are only
	// logged.
	AutoSubmitOnFocusLoss bool
	// Deadline is the wall-clock instant the attempt expires:
	// startedAt + duration. It is recomputed from the persisted start
	// time on every resume, so reloading never grants extra time.
	Deadline time.Time
}

// LogEntry is an activity-log record the adapter must persist.
type LogEntry struct {
	Event   string
	Details string
}

// Transition is the reducer output: the next state plus the effects the
// adapter must apply. Integrity violations produce log entries without
// changing state; policy-driven terminations set Finalize with a reason.
type Transition struct {
	Next             State
	RemainingSeconds int
	Logs             []LogEntry
	Finalize         bool
	Reason           model.SubmitReason
}

// Reduce computes the transition for one event. It is pure: no clocks, no
// timers, no I/O. Terminal states absorb every event.
func Reduce(state State, p Policy, ev Event) Transition {
	t := Transition{Next: state, RemainingSeconds: RemainingUntil(p.Deadline, ev.At)}

	if state != StateActive {
		return t
	}

	switch ev.Type {
	case EventTick:
		if t.RemainingSeconds <= 0 {
			t.RemainingSeconds = 0
			t.Next = StateSubmitted
			t.Finalize = true
			t.Reason = model.ReasonTimeExpired
		}

	case EventVisibilityHidden:
		// Always logged; only terminates when the exam opts in.
		t.Logs = append(t.Logs, LogEntry{Event: model.ActivityFocusLost, Details: "Document hidden or tab switched"})
		if p.AutoSubmitOnFocusLoss {
			t.Next = StateSubmitted
			t.Finalize = true
			t.Reason = model.ReasonFocusLost
		}

	case EventWindowBlur:
		t.Logs = append(t.Logs, LogEntry{Event: model.ActivityWindowBlur, Details: "Window lost focus"})
		if p.AutoSubmitOnFocusLoss {
			t.Next = StateSubmitted
			t.Finalize = true
			t.Reason = model.ReasonWindowBlur
		}

	case EventClipboardAttempt:
		t.Logs = append(t.Logs, LogEntry{Event: model.ActivityCopyPasteBlocked, Details: ev.Details})

	case EventContextMenu:
		t.Logs = append(t.Logs, LogEntry{Event: model.ActivityContextMenuBlocked, Details: ev.Details})

	case EventSubmitRequested:
		t.Next = StateSubmitted
		t.Finalize = true
		t.Reason = model.ReasonSubmitted
	}

	return t
}

// Deadline returns the instant an attempt started at startedAt expires.
func Deadline(startedAt time.Time, durationMinutes int) time.Time {
	return startedAt.Add(time.Duration(durationMinutes) * time.Minute)
}

// Remaining computes the attempt's remaining whole seconds at now, floored
// at zero. Pure function of its inputs: "time's up" correctness never
// depends on timer-firing precision.
func Remaining(startedAt time.Time, durationMinutes int, now time.Time) int {
	return RemainingUntil(Deadline(startedAt, durationMinutes), now)
}

// RemainingUntil computes the whole seconds left before deadline at now,
// floored at zero.
func RemainingUntil(deadline, now time.Time) int {
	remaining := int(deadline.Sub(now) / time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FormatCountdown renders seconds as MM:SS, clamped to non-negative.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
