package session

import (
	"testing"
	"time"

	"github.com/edustack/securexam-backend/internal/model"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func activePolicy(autoSubmit bool, minutes int) Policy {
	return Policy{
		AutoSubmitOnFocusLoss: autoSubmit,
		Deadline:              t0.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestReduceTickCountsDown(t *testing.T) {
	p := activePolicy(false, 30)

	tr := Reduce(StateActive, p, Event{Type: EventTick, At: t0.Add(10 * time.Minute)})
	if tr.Next != StateActive {
		t.Fatalf("Next = %s, want active", tr.Next)
	}
	if tr.RemainingSeconds != 20*60 {
		t.Fatalf("RemainingSeconds = %d, want %d", tr.RemainingSeconds, 20*60)
	}
	if tr.Finalize {
		t.Fatal("tick before deadline must not finalize")
	}
}

func TestReduceTickExpiry(t *testing.T) {
	p := activePolicy(false, 30)

	for _, at := range []time.Time{
		p.Deadline,
		p.Deadline.Add(time.Second),
		p.Deadline.Add(time.Hour),
	} {
		tr := Reduce(StateActive, p, Event{Type: EventTick, At: at})
		if tr.Next != StateSubmitted {
			t.Fatalf("at %v: Next = %s, want submitted", at, tr.Next)
		}
		if !tr.Finalize || tr.Reason != model.ReasonTimeExpired {
			t.Fatalf("at %v: Finalize=%v Reason=%s", at, tr.Finalize, tr.Reason)
		}
		if tr.RemainingSeconds != 0 {
			t.Fatalf("at %v: RemainingSeconds = %d, want 0", at, tr.RemainingSeconds)
		}
	}
}

func TestReduceFocusLossWithPolicy(t *testing.T) {
	p := activePolicy(true, 30)

	tr := Reduce(StateActive, p, Event{Type: EventVisibilityHidden, At: t0.Add(time.Minute)})
	if tr.Next != StateSubmitted || !tr.Finalize {
		t.Fatalf("visibility hidden with policy: Next=%s Finalize=%v", tr.Next, tr.Finalize)
	}
	if tr.Reason != model.ReasonFocusLost {
		t.Fatalf("Reason = %s, want focus_lost", tr.Reason)
	}
	if len(tr.Logs) != 1 || tr.Logs[0].Event != model.ActivityFocusLost {
		t.Fatalf("Logs = %+v, want one focus_lost entry", tr.Logs)
	}

	tr = Reduce(StateActive, p, Event{Type: EventWindowBlur, At: t0.Add(time.Minute)})
	if tr.Reason != model.ReasonWindowBlur {
		t.Fatalf("Reason = %s, want window_blur", tr.Reason)
	}
	if len(tr.Logs) != 1 || tr.Logs[0].Event != model.ActivityWindowBlur {
		t.Fatalf("Logs = %+v, want one window_blur entry", tr.Logs)
	}
}

func TestReduceFocusLossWithoutPolicy(t *testing.T) {
	p := activePolicy(false, 30)

	for _, evType := range []EventType{EventVisibilityHidden, EventWindowBlur} {
		tr := Reduce(StateActive, p, Event{Type: evType, At: t0.Add(time.Minute)})
		if tr.Next != StateActive || tr.Finalize {
			t.Fatalf("%s without policy: Next=%s Finalize=%v", evType, tr.Next, tr.Finalize)
		}
		if len(tr.Logs) != 1 {
			t.Fatalf("%s: logged %d entries, want 1", evType, len(tr.Logs))
		}
	}
}

func TestReduceIntegrityEventsOnlyLog(t *testing.T) {
	p := activePolicy(true, 30)

	tr := Reduce(StateActive, p, Event{Type: EventClipboardAttempt, At: t0, Details: "copy"})
	if tr.Next != StateActive || tr.Finalize {
		t.Fatal("clipboard attempt must never finalize")
	}
	if len(tr.Logs) != 1 || tr.Logs[0].Event != model.ActivityCopyPasteBlocked || tr.Logs[0].Details != "copy" {
		t.Fatalf("Logs = %+v", tr.Logs)
	}

	tr = Reduce(StateActive, p, Event{Type: EventContextMenu, At: t0})
	if tr.Next != StateActive || len(tr.Logs) != 1 || tr.Logs[0].Event != model.ActivityContextMenuBlocked {
		t.Fatalf("context menu: Next=%s Logs=%+v", tr.Next, tr.Logs)
	}
}

func TestReduceSubmitRequested(t *testing.T) {
	p := activePolicy(false, 30)

	tr := Reduce(StateActive, p, Event{Type: EventSubmitRequested, At: t0.Add(time.Minute)})
	if tr.Next != StateSubmitted || !tr.Finalize || tr.Reason != model.ReasonSubmitted {
		t.Fatalf("submit: Next=%s Finalize=%v Reason=%s", tr.Next, tr.Finalize, tr.Reason)
	}
}

func TestReduceTerminalStatesAbsorb(t *testing.T) {
	p := activePolicy(true, 30)
	events := []EventType{
		EventTick, EventVisibilityHidden, EventWindowBlur,
		EventClipboardAttempt, EventContextMenu, EventSubmitRequested,
	}

	for _, state := range []State{StateSubmitted, StateDenied} {
		for _, evType := range events {
			tr := Reduce(state, p, Event{Type: evType, At: t0.Add(time.Hour)})
			if tr.Next != state {
				t.Fatalf("%s + %s: Next = %s", state, evType, tr.Next)
			}
			if tr.Finalize || len(tr.Logs) != 0 {
				t.Fatalf("%s + %s: Finalize=%v Logs=%+v", state, evType, tr.Finalize, tr.Logs)
			}
		}
	}
}

func TestReduceLoadingIgnoresEvents(t *testing.T) {
	p := activePolicy(true, 30)

	tr := Reduce(StateLoading, p, Event{Type: EventSubmitRequested, At: t0})
	if tr.Next != StateLoading || tr.Finalize {
		t.Fatalf("loading + submit: Next=%s Finalize=%v", tr.Next, tr.Finalize)
	}
}

func TestRemaining(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"at start", t0, 30 * 60},
		{"mid", t0.Add(10 * time.Minute), 20 * 60},
		{"at deadline", t0.Add(30 * time.Minute), 0},
		{"past deadline", t0.Add(45 * time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Remaining(t0, 30, tt.now); got != tt.want {
				t.Errorf("Remaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{65, "01:05"},
		{600, "10:00"},
		{3599, "59:59"},
		{-10, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatCountdown(tt.seconds); got != tt.want {
			t.Errorf("FormatCountdown(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	if StateActive.Terminal() || StateLoading.Terminal() {
		t.Fatal("active/loading must not be terminal")
	}
	if !StateSubmitted.Terminal() || !StateDenied.Terminal() {
		t.Fatal("submitted/denied must be terminal")
	}
}
