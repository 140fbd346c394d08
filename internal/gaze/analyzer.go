package gaze

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/samples"
	"github.com/danielpatrickdp/selftest-engine/internal/timeutil"
	"github.com/danielpatrickdp/selftest-engine/internal/window"
)

// #region analyzer

// Analyzer accumulates iris positions for one test window at a time. All
// methods except Latest must be called from a single goroutine.
type Analyzer struct {
	cfg   Config
	clock timeutil.Clock
	log   *logrus.Entry

	win      *window.Window
	buf      *samples.Buffer
	smoothed float64
	seeded   bool
	dropped  int

	latest atomic.Pointer[results.GazeResult]
}

// NewAnalyzer creates an idle analyzer. clock may be nil for wall time.
func NewAnalyzer(cfg Config, clock timeutil.Clock) *Analyzer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Analyzer{
		cfg:   cfg,
		clock: clock,
		log:   logrus.WithField("component", "gaze"),
	}
}

// #endregion analyzer

// #region lifecycle

// Begin starts a new window at start, discarding any prior history.
func (a *Analyzer) Begin(start time.Time) {
	a.win = window.New(start, 0, a.cfg.Duration)
	a.buf = samples.New(a.cfg.BufferSize)
	a.smoothed = 0
	a.seeded = false
	a.dropped = 0
	a.latest.Store(nil)
}

// Window returns the current window, nil before Begin.
func (a *Analyzer) Window() *window.Window { return a.win }

// Observe feeds one message received at at. It reports whether a sample was
// recorded; messages outside the active window or without an iris are skipped.
func (a *Analyzer) Observe(msg landmark.IrisMessage, at time.Time) bool {
	if a.win == nil || a.buf == nil || !a.win.ActiveAt(at) {
		return false
	}
	x, ok := TrackedX(msg)
	if !ok {
		return false
	}
	smoothed := x
	if a.seeded {
		smoothed = a.smoothed*(1-a.cfg.Alpha) + x*a.cfg.Alpha
	}
	t := at.Sub(a.win.Start()).Seconds()
	if !a.buf.Push(samples.Sample{Value: smoothed, T: t}) {
		a.dropped++
		return false
	}
	a.smoothed, a.seeded = smoothed, true
	live := Evaluate(a.buf.Samples(), a.cfg)
	a.latest.Store(&live)
	return true
}

// Latest returns the most recent continuous score. Safe for concurrent use.
func (a *Analyzer) Latest() (results.GazeResult, bool) {
	p := a.latest.Load()
	if p == nil {
		return results.GazeResult{}, false
	}
	return *p, true
}

// Finish scores the window as of at and releases the buffer.
func (a *Analyzer) Finish(at time.Time) results.GazeResult {
	var s []samples.Sample
	if a.buf != nil {
		s = a.buf.Samples()
	}
	res := Evaluate(s, a.cfg)
	if a.cfg.KeepTrace && len(s) > 0 {
		res.Trace = s
	}
	res.CompletedAt = at.UTC()
	if a.win != nil {
		a.win.Stop(at)
	}
	if a.dropped > 0 {
		a.log.WithField("dropped", a.dropped).Debug("samples with non-increasing timestamps dropped")
	}
	a.release()
	a.latest.Store(&res)
	return res
}

func (a *Analyzer) release() {
	a.buf = nil
	a.seeded = false
}

// #endregion lifecycle

// #region run

// Run drives one window in real time from msgs until the deadline. A closed
// msgs channel is treated as a stream outage: processing pauses and the
// window still ends on its deadline. Cancelling ctx abandons the window,
// releases its state and returns ctx.Err().
func (a *Analyzer) Run(ctx context.Context, msgs <-chan landmark.IrisMessage) (results.GazeResult, error) {
	start := a.clock.Now()
	a.Begin(start)
	timer := a.clock.NewTimer(a.clock.Until(a.win.Deadline()))
	defer timer.Stop()

	a.log.WithField("duration", a.cfg.Duration).Info("gaze window started")
	for {
		select {
		case <-ctx.Done():
			a.release()
			a.log.Info("gaze window abandoned")
			return results.GazeResult{}, ctx.Err()

		case now := <-timer.C():
			res := a.Finish(now)
			a.logResult(res)
			return res, nil

		case msg, ok := <-msgs:
			if !ok {
				a.log.Warn("landmark stream closed, waiting for window end")
				msgs = nil
				continue
			}
			now := a.clock.Now()
			if a.win.PhaseAt(now) == window.PhaseEnded {
				res := a.Finish(now)
				a.logResult(res)
				return res, nil
			}
			a.Observe(msg, now)
		}
	}
}

func (a *Analyzer) logResult(res results.GazeResult) {
	a.log.WithFields(logrus.Fields{
		"score":      res.Score,
		"pass":       res.Pass,
		"samples":    res.SampleCount,
		"smoothness": res.Smoothness,
		"jerkiness":  res.Jerkiness,
		"reason":     res.Reason,
	}).Info("gaze window complete")
}

// #endregion run

// #region helpers

// TrackedX returns the midpoint x of the left and right iris centres, or the
// sole available one. The first point of each list is the iris centre.
func TrackedX(msg landmark.IrisMessage) (float64, bool) {
	switch {
	case len(msg.LeftIris) > 0 && len(msg.RightIris) > 0:
		return (msg.LeftIris[0].X + msg.RightIris[0].X) / 2, true
	case len(msg.LeftIris) > 0:
		return msg.LeftIris[0].X, true
	case len(msg.RightIris) > 0:
		return msg.RightIris[0].X, true
	}
	return 0, false
}

// #endregion helpers
