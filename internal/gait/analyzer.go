package gait

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/timeutil"
	"github.com/danielpatrickdp/selftest-engine/internal/window"
)

// #region analyzer

// latch is a one-shot flag: it trips on the first violating frame and never
// re-arms within a window.
type latch bool

func (l *latch) trip(violating bool) bool {
	if bool(*l) || !violating {
		return false
	}
	*l = true
	return true
}

// Analyzer counts walk errors for one window at a time. Only ErrorCount may
// be called concurrently with Run.
type Analyzer struct {
	cfg   Config
	clock timeutil.Clock
	log   *logrus.Entry

	win *window.Window

	heel, balance, arm latch

	errors   int
	frames   int
	falls    int
	stumbles int

	live atomic.Int32 // errors, published for readers outside Run
}

// NewAnalyzer creates an idle analyzer. clock may be nil for wall time.
func NewAnalyzer(cfg Config, clock timeutil.Clock) *Analyzer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Analyzer{
		cfg:   cfg,
		clock: clock,
		log:   logrus.WithField("component", "gait"),
	}
}

// #endregion analyzer

// #region lifecycle

// Begin starts a new window at start. The countdown runs first; frames are
// only scored once it elapses.
func (a *Analyzer) Begin(start time.Time) {
	a.win = window.New(start, a.cfg.Countdown, a.cfg.Duration)
	a.reset()
}

func (a *Analyzer) reset() {
	a.heel, a.balance, a.arm = false, false, false
	a.errors, a.frames, a.falls, a.stumbles = 0, 0, 0, 0
	a.live.Store(0)
}

// Window returns the current window, nil before Begin.
func (a *Analyzer) Window() *window.Window { return a.win }

// ErrorCount returns the errors latched so far in the current window.
func (a *Analyzer) ErrorCount() int { return int(a.live.Load()) }

// Observe scores one frame received at at. It reports whether the frame
// qualified, meaning at least one condition could be evaluated.
func (a *Analyzer) Observe(f landmark.Frame, at time.Time) bool {
	if a.win == nil || !a.win.ActiveAt(at) {
		return false
	}
	r := Signals(f)
	if !r.Qualifies() {
		return false
	}
	a.frames++

	if r.HasGaps && a.heel.trip(r.Gap1 > a.cfg.HeelGap && r.Gap2 > a.cfg.HeelGap) {
		a.errors++
		a.log.WithFields(logrus.Fields{"gap1": r.Gap1, "gap2": r.Gap2}).Debug("heel error")
	}
	if r.HasTilt && a.balance.trip(r.Tilt > a.cfg.MaxTilt) {
		a.errors++
		a.log.WithField("tilt", r.Tilt).Debug("balance error")
	}
	if r.HasArm && a.arm.trip(r.ArmDist > a.cfg.MaxArmDist) {
		a.errors++
		a.log.WithField("armDist", r.ArmDist).Debug("arm error")
	}
	a.live.Store(int32(a.errors))

	if r.HasCentre && r.CentreY > a.cfg.FallY {
		a.falls++
	}
	if r.HasHipTilt && r.HipTilt > a.cfg.StumbleHipTilt {
		a.stumbles++
	}
	return true
}

// Finish closes the window at at and returns its result.
func (a *Analyzer) Finish(at time.Time) results.GaitResult {
	res := results.GaitResult{
		ErrorCount:    a.errors,
		HeelError:     bool(a.heel),
		BalanceError:  bool(a.balance),
		ArmError:      bool(a.arm),
		Frames:        a.frames,
		FallFrames:    a.falls,
		StumbleFrames: a.stumbles,
		Reason:        results.ReasonScored,
		CompletedAt:   at.UTC(),
	}
	if a.frames == 0 {
		res.Reason = results.ReasonInsufficientData
	} else {
		res.Pass = a.errors < a.cfg.PassMaxErrors
	}
	if a.win != nil {
		a.win.Stop(at)
	}
	a.reset()
	return res
}

// #endregion lifecycle

// #region run

// Run drives one walk from frames until stop is signalled or, for a bounded
// window, the deadline passes. A closed frames channel pauses scoring without
// ending the walk. Cancelling ctx abandons the walk and returns ctx.Err().
func (a *Analyzer) Run(ctx context.Context, frames <-chan landmark.PoseMessage, stop <-chan struct{}) (results.GaitResult, error) {
	a.Begin(a.clock.Now())

	var expired <-chan time.Time
	if a.win.Bounded() {
		timer := a.clock.NewTimer(a.clock.Until(a.win.Deadline()))
		defer timer.Stop()
		expired = timer.C()
	}

	a.log.WithFields(logrus.Fields{
		"countdown": a.cfg.Countdown,
		"duration":  a.cfg.Duration,
	}).Info("gait walk started")
	for {
		select {
		case <-ctx.Done():
			a.reset()
			a.log.Info("gait walk abandoned")
			return results.GaitResult{}, ctx.Err()

		case <-stop:
			return a.complete(a.clock.Now()), nil

		case now := <-expired:
			return a.complete(now), nil

		case msg, ok := <-frames:
			if !ok {
				a.log.Warn("pose stream closed, waiting for stop")
				frames = nil
				continue
			}
			now := a.clock.Now()
			if a.win.PhaseAt(now) == window.PhaseEnded {
				return a.complete(now), nil
			}
			a.Observe(msg.Frame, now)
		}
	}
}

func (a *Analyzer) complete(at time.Time) results.GaitResult {
	res := a.Finish(at)
	a.log.WithFields(logrus.Fields{
		"errors":  res.ErrorCount,
		"pass":    res.Pass,
		"frames":  res.Frames,
		"heel":    res.HeelError,
		"balance": res.BalanceError,
		"arm":     res.ArmError,
		"reason":  res.Reason,
	}).Info("gait walk complete")
	return res
}

// #endregion run
