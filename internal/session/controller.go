package session

import (
	"sync"
	"time"

	"github.com/edustack/securexam-backend/internal/model"
)

// Sink receives the effects of state machine transitions. The WebSocket
// handler implements it against the attempt service and the client
// connection; tests implement it in memory.
type Sink interface {
	// LogActivity persists one activity-log entry for the attempt.
	LogActivity(event, details string)
	// Finalize persists the terminal transition. A non-nil error means the
	// result could not be saved; the controller then stays in Active so
	// the termination can be retried instead of silently losing the
	// attempt, and the adapter must surface a blocking error.
	Finalize(reason model.SubmitReason) error
	// Countdown reports the remaining seconds after each tick.
	Countdown(remainingSeconds int)
}

// Controller drives the reducer at runtime. Events from the transport and
// from the internal ticker are serialized behind one mutex, so the machine
// observes a single-threaded event stream. The ticker is cooperative and is
// cancelled on any transition out of Active: a stale timer must never fire
// into a finalized session and double-finalize the attempt.
type Controller struct {
	// TickInterval is the countdown period. Tests may shorten it before
	// Activate; it defaults to one second.
	TickInterval time.Duration
	// NowFunc is the clock. Tests may replace it before Activate.
	NowFunc func() time.Time

	mu       sync.Mutex
	state    State
	policy   Policy
	sink     Sink
	stopTick chan struct{}
}

// NewController creates a controller in StateLoading.
func NewController(policy Policy, sink Sink) *Controller {
	return &Controller{
		TickInterval: time.Second,
		NowFunc:      time.Now,
		state:        StateLoading,
		policy:       policy,
		sink:         sink,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Deny moves Loading to the terminal Denied state. No attempt exists and no
// guards were ever installed.
func (c *Controller) Deny() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoading {
		c.state = StateDenied
	}
}

// Activate moves Loading to Active and starts the countdown ticker.
func (c *Controller) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateLoading {
		return
	}
	c.state = StateActive

	stop := make(chan struct{})
	c.stopTick = stop
	go c.runTicker(stop)
}

func (c *Controller) runTicker(stop chan struct{}) {
	ticker := time.NewTicker(c.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Handle(Event{Type: EventTick, At: c.NowFunc()})
		}
	}
}

// Handle feeds one event through the reducer and applies its effects. The
// returned error is a failed finalize persist; the adapter must surface it
// as a blocking error instead of dropping the result.
func (c *Controller) Handle(ev Event) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.At.IsZero() {
		ev.At = c.NowFunc()
	}

	t := Reduce(c.state, c.policy, ev)

	for _, entry := range t.Logs {
		c.sink.LogActivity(entry.Event, entry.Details)
	}

	if t.Finalize {
		if err := c.sink.Finalize(t.Reason); err != nil {
			// Could not persist the result: hold in Active so the
			// termination is retried (next tick, or the student
			// submitting again) rather than dropped.
			t.Next = c.state
			return t, err
		}
	}

	if c.state == StateActive && ev.Type == EventTick && t.Next == StateActive {
		c.sink.Countdown(t.RemainingSeconds)
	}

	if t.Next != c.state {
		c.state = t.Next
		if c.state != StateActive {
			c.cancelTickerLocked()
		}
	}
	return t, nil
}

// Stop tears the controller down on component unload or navigation: the
// ticker is cancelled whatever the state, so nothing leaks across page
// views.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTickerLocked()
}

func (c *Controller) cancelTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}
