// Package window implements the timed test window shared by the analyzers.
//
// A window is fixed at creation from absolute instants (start, start+countdown,
// start+countdown+duration). Every query derives the phase from the caller's
// current time, so there is no per-tick state to drift.
package window

import (
	"math"
	"time"
)

// #region phase

// Phase is the lifecycle position of a window at a given instant.
type Phase string

const (
	PhaseCountdown Phase = "countdown"
	PhaseActive    Phase = "active"
	PhaseEnded     Phase = "ended"
)

// #endregion phase

// #region window

// Window is one test attempt. It is terminal once ended or stopped and is
// never reused; a new attempt creates a new Window.
type Window struct {
	start     time.Time
	activeAt  time.Time
	deadline  time.Time
	stoppedAt time.Time
	unbounded bool
}

// New creates a window starting at start. countdown may be zero. A zero
// duration means the window stays active until Stop is called.
func New(start time.Time, countdown, duration time.Duration) *Window {
	if countdown < 0 {
		countdown = 0
	}
	activeAt := start.Add(countdown)
	return &Window{
		start:     start,
		activeAt:  activeAt,
		deadline:  activeAt.Add(duration),
		unbounded: duration <= 0,
	}
}

// Start returns the instant the window was created.
func (w *Window) Start() time.Time { return w.start }

// ActiveFrom returns the instant the countdown ends.
func (w *Window) ActiveFrom() time.Time { return w.activeAt }

// Deadline returns the absolute end of the active phase. For an unbounded
// window it returns the zero time.
func (w *Window) Deadline() time.Time {
	if w.unbounded {
		return time.Time{}
	}
	return w.deadline
}

// Bounded reports whether the window ends on its own.
func (w *Window) Bounded() bool { return !w.unbounded }

// PhaseAt returns the phase at t.
func (w *Window) PhaseAt(t time.Time) Phase {
	if !w.stoppedAt.IsZero() && !t.Before(w.stoppedAt) {
		return PhaseEnded
	}
	if t.Before(w.activeAt) {
		return PhaseCountdown
	}
	if !w.unbounded && !t.Before(w.deadline) {
		return PhaseEnded
	}
	return PhaseActive
}

// ActiveAt reports whether samples taken at t belong to the window.
func (w *Window) ActiveAt(t time.Time) bool {
	return w.PhaseAt(t) == PhaseActive
}

// Remaining returns max(0, deadline - t). Unbounded windows report zero.
func (w *Window) Remaining(t time.Time) time.Duration {
	if w.unbounded || w.PhaseAt(t) == PhaseEnded {
		return 0
	}
	if t.Before(w.activeAt) {
		return w.deadline.Sub(w.activeAt)
	}
	if d := w.deadline.Sub(t); d > 0 {
		return d
	}
	return 0
}

// CountdownRemaining returns max(0, activeFrom - t).
func (w *Window) CountdownRemaining(t time.Time) time.Duration {
	if d := w.activeAt.Sub(t); d > 0 {
		return d
	}
	return 0
}

// RemainingSeconds returns the whole seconds left for display, rounded up.
func (w *Window) RemainingSeconds(t time.Time) int {
	return int(math.Ceil(w.Remaining(t).Seconds()))
}

// Stop ends the window at t. Later calls keep the first stop instant.
func (w *Window) Stop(t time.Time) {
	if w.stoppedAt.IsZero() {
		w.stoppedAt = t
	}
}

// Stopped reports whether Stop was called.
func (w *Window) Stopped() bool { return !w.stoppedAt.IsZero() }

// #endregion window
