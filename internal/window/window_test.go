package window

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPhaseTransitions(t *testing.T) {
	w := New(t0, 3*time.Second, 10*time.Second)

	cases := []struct {
		offset time.Duration
		want   Phase
	}{
		{0, PhaseCountdown},
		{2999 * time.Millisecond, PhaseCountdown},
		{3 * time.Second, PhaseActive},
		{12 * time.Second, PhaseActive},
		{13 * time.Second, PhaseEnded},
		{time.Hour, PhaseEnded},
	}
	for _, c := range cases {
		if got := w.PhaseAt(t0.Add(c.offset)); got != c.want {
			t.Errorf("PhaseAt(+%v) = %s, want %s", c.offset, got, c.want)
		}
	}
}

func TestRemainingIsDeadlineBased(t *testing.T) {
	w := New(t0, 0, 10*time.Second)

	if got := w.Remaining(t0.Add(2500 * time.Millisecond)); got != 7500*time.Millisecond {
		t.Errorf("Remaining = %v, want 7.5s", got)
	}
	if got := w.RemainingSeconds(t0.Add(2500 * time.Millisecond)); got != 8 {
		t.Errorf("RemainingSeconds = %d, want 8", got)
	}
	if got := w.Remaining(t0.Add(11 * time.Second)); got != 0 {
		t.Errorf("Remaining after deadline = %v, want 0", got)
	}
	if !w.Deadline().Equal(t0.Add(10 * time.Second)) {
		t.Errorf("Deadline = %v", w.Deadline())
	}
}

func TestRemainingDuringCountdown(t *testing.T) {
	w := New(t0, 3*time.Second, 10*time.Second)
	if got := w.Remaining(t0.Add(time.Second)); got != 10*time.Second {
		t.Errorf("Remaining during countdown = %v, want full duration", got)
	}
	if got := w.CountdownRemaining(t0.Add(time.Second)); got != 2*time.Second {
		t.Errorf("CountdownRemaining = %v, want 2s", got)
	}
}

func TestStopEndsWindow(t *testing.T) {
	w := New(t0, 0, 0)
	if w.Bounded() {
		t.Fatal("zero duration should be unbounded")
	}
	if !w.ActiveAt(t0.Add(time.Hour)) {
		t.Fatal("unbounded window should stay active")
	}
	w.Stop(t0.Add(5 * time.Second))
	w.Stop(t0.Add(9 * time.Second))
	if !w.Stopped() {
		t.Fatal("expected stopped")
	}
	if !w.ActiveAt(t0.Add(4 * time.Second)) {
		t.Error("instants before stop remain active")
	}
	if w.PhaseAt(t0.Add(5*time.Second)) != PhaseEnded {
		t.Error("expected ended at first stop instant")
	}
}
