package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edustack/securexam-backend/internal/model"
)

// memSink records every effect; Finalize can be forced to fail.
type memSink struct {
	mu          sync.Mutex
	logs        []LogEntry
	finalized   []model.SubmitReason
	ticks       []int
	finalizeErr error
}

func (s *memSink) LogActivity(event, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogEntry{Event: event, Details: details})
}

func (s *memSink) Finalize(reason model.SubmitReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	s.finalized = append(s.finalized, reason)
	return nil
}

func (s *memSink) Countdown(remainingSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, remainingSeconds)
}

func (s *memSink) finalizeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.finalized)
}

func newTestController(sink *memSink, autoSubmit bool) *Controller {
	c := NewController(Policy{
		AutoSubmitOnFocusLoss: autoSubmit,
		Deadline:              t0.Add(30 * time.Minute),
	}, sink)
	c.NowFunc = func() time.Time { return t0.Add(time.Minute) }
	return c
}

func TestControllerDeny(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, false)

	c.Deny()
	if c.State() != StateDenied {
		t.Fatalf("State = %s, want denied", c.State())
	}

	// Denied absorbs everything, including submit.
	c.Handle(Event{Type: EventSubmitRequested})
	if sink.finalizeCount() != 0 {
		t.Fatal("denied session must never finalize")
	}
}

func TestControllerSubmitFinalizesOnce(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, false)
	c.Activate()
	defer c.Stop()

	tr, err := c.Handle(Event{Type: EventSubmitRequested})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if tr.Next != StateSubmitted || c.State() != StateSubmitted {
		t.Fatalf("state after submit = %s", c.State())
	}

	// Second submit is absorbed.
	c.Handle(Event{Type: EventSubmitRequested})
	if got := sink.finalizeCount(); got != 1 {
		t.Fatalf("finalized %d times, want 1", got)
	}
	if sink.finalized[0] != model.ReasonSubmitted {
		t.Fatalf("reason = %s, want submitted", sink.finalized[0])
	}
}

func TestControllerFocusLossPolicy(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, true)
	c.Activate()
	defer c.Stop()

	c.Handle(Event{Type: EventVisibilityHidden})
	if c.State() != StateSubmitted {
		t.Fatalf("state = %s, want submitted", c.State())
	}
	if sink.finalizeCount() != 1 || sink.finalized[0] != model.ReasonFocusLost {
		t.Fatalf("finalized = %v", sink.finalized)
	}
	if len(sink.logs) != 1 || sink.logs[0].Event != model.ActivityFocusLost {
		t.Fatalf("logs = %v", sink.logs)
	}
}

func TestControllerFinalizeFailureKeepsActive(t *testing.T) {
	sink := &memSink{finalizeErr: errors.New("db down")}
	c := newTestController(sink, false)
	c.Activate()
	defer c.Stop()

	tr, err := c.Handle(Event{Type: EventSubmitRequested})
	if err == nil {
		t.Fatal("expected finalize error")
	}
	if tr.Next != StateActive || c.State() != StateActive {
		t.Fatalf("state = %s, want active after failed finalize", c.State())
	}

	// Persistence recovers; the retried submit wins.
	sink.mu.Lock()
	sink.finalizeErr = nil
	sink.mu.Unlock()

	if _, err := c.Handle(Event{Type: EventSubmitRequested}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.State() != StateSubmitted || sink.finalizeCount() != 1 {
		t.Fatalf("state=%s finalized=%d", c.State(), sink.finalizeCount())
	}
}

func TestControllerTickExpiry(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, false)
	c.NowFunc = func() time.Time { return t0.Add(31 * time.Minute) }
	c.Activate()
	defer c.Stop()

	c.Handle(Event{Type: EventTick})
	if c.State() != StateSubmitted {
		t.Fatalf("state = %s, want submitted", c.State())
	}
	if sink.finalizeCount() != 1 || sink.finalized[0] != model.ReasonTimeExpired {
		t.Fatalf("finalized = %v", sink.finalized)
	}
}

func TestControllerCountdownReported(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, false)
	c.Activate()
	defer c.Stop()

	c.Handle(Event{Type: EventTick})
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.ticks) != 1 || sink.ticks[0] != 29*60 {
		t.Fatalf("ticks = %v, want [%d]", sink.ticks, 29*60)
	}
}

func TestControllerTickerRunsAndStops(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, false)
	c.TickInterval = 5 * time.Millisecond
	c.Activate()

	deadline := time.After(time.Second)
	for {
		sink.mu.Lock()
		n := len(sink.ticks)
		sink.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("ticker never fired")
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()
	// One in-flight tick may still land; wait it out before sampling.
	time.Sleep(15 * time.Millisecond)
	sink.mu.Lock()
	after := len(sink.ticks)
	sink.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	sink.mu.Lock()
	final := len(sink.ticks)
	sink.mu.Unlock()
	if final != after {
		t.Fatalf("ticker still firing after Stop: %d -> %d", after, final)
	}
}

func TestControllerActivateOnlyFromLoading(t *testing.T) {
	sink := &memSink{}
	c := newTestController(sink, false)
	c.Deny()
	c.Activate()
	if c.State() != StateDenied {
		t.Fatalf("Activate after Deny: state = %s", c.State())
	}
}
