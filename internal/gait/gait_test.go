package gait

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/timeutil"
)

// #region helpers

// steadyFrame is a clean heel-to-toe stance with arms at the sides.
func steadyFrame() landmark.Frame {
	var f landmark.Frame
	f.Set(landmark.LeftShoulder, landmark.Point{X: 0.45, Y: 0.30})
	f.Set(landmark.RightShoulder, landmark.Point{X: 0.55, Y: 0.30})
	f.Set(landmark.LeftWrist, landmark.Point{X: 0.44, Y: 0.55})
	f.Set(landmark.RightWrist, landmark.Point{X: 0.56, Y: 0.55})
	f.Set(landmark.LeftHip, landmark.Point{X: 0.47, Y: 0.55})
	f.Set(landmark.RightHip, landmark.Point{X: 0.53, Y: 0.55})
	f.Set(landmark.LeftHeel, landmark.Point{X: 0.50, Y: 0.85})
	f.Set(landmark.RightToe, landmark.Point{X: 0.51, Y: 0.84})
	f.Set(landmark.RightHeel, landmark.Point{X: 0.50, Y: 0.80})
	f.Set(landmark.LeftToe, landmark.Point{X: 0.49, Y: 0.79})
	return f
}

func with(f landmark.Frame, id int, p landmark.Point) landmark.Frame {
	f.Set(id, p)
	return f
}

func heelGap() landmark.Frame {
	f := steadyFrame()
	f = with(f, landmark.RightToe, landmark.Point{X: 0.60, Y: 0.84})
	return with(f, landmark.LeftToe, landmark.Point{X: 0.40, Y: 0.79})
}

func tilted() landmark.Frame {
	return with(steadyFrame(), landmark.LeftShoulder, landmark.Point{X: 0.45, Y: 0.45})
}

func armsOut() landmark.Frame {
	return with(steadyFrame(), landmark.RightWrist, landmark.Point{X: 0.80, Y: 0.50})
}

// active returns an analyzer whose countdown has elapsed at the returned time.
func active(t *testing.T) (*Analyzer, time.Time) {
	t.Helper()
	a := NewAnalyzer(DefaultConfig(), nil)
	start := time.Unix(5000, 0)
	a.Begin(start)
	return a, start.Add(4 * time.Second)
}

// #endregion helpers

// #region signal-tests

func TestLatchTripsOnce(t *testing.T) {
	var l latch
	if l.trip(false) {
		t.Fatal("trip without violation")
	}
	if !l.trip(true) {
		t.Fatal("first violation should trip")
	}
	if l.trip(true) || !bool(l) {
		t.Error("latch must stay set without tripping again")
	}
}

func TestSignalsSteady(t *testing.T) {
	r := Signals(steadyFrame())
	if !r.HasGaps || !r.HasTilt || !r.HasArm {
		t.Fatalf("expected all signals present: %+v", r)
	}
	if r.Gap1 > 0.05 || r.Tilt > 0.1 || r.ArmDist > 0.15 {
		t.Errorf("steady frame should not violate: %+v", r)
	}
}

func TestSignalsArmDistUsesMaxSide(t *testing.T) {
	r := Signals(armsOut())
	if d := r.ArmDist - 0.27; d > 1e-9 || d < -1e-9 {
		t.Errorf("armDist = %f, want 0.27", r.ArmDist)
	}
}

func TestSignalsMissingPoints(t *testing.T) {
	var f landmark.Frame
	f.Set(landmark.LeftShoulder, landmark.Point{X: 0.4, Y: 0.3})
	r := Signals(f)
	if r.Qualifies() {
		t.Errorf("a single shoulder should not qualify: %+v", r)
	}

	f.Set(landmark.LeftWrist, landmark.Point{X: 0.1, Y: 0.5})
	f.Set(landmark.LeftHip, landmark.Point{X: 0.4, Y: 0.5})
	r = Signals(f)
	if !r.HasArm || r.HasTilt || r.HasGaps {
		t.Errorf("only the arm signal should be present: %+v", r)
	}
}

// #endregion signal-tests

// #region verdict-tests

func TestCleanWalkPasses(t *testing.T) {
	a, now := active(t)
	for i := 0; i < 90; i++ {
		a.Observe(steadyFrame(), now.Add(time.Duration(i)*33*time.Millisecond))
	}
	res := a.Finish(now.Add(5 * time.Second))
	if res.ErrorCount != 0 || !res.Pass {
		t.Errorf("clean walk: errors=%d pass=%v", res.ErrorCount, res.Pass)
	}
	if res.Frames != 90 || res.Reason != results.ReasonScored {
		t.Errorf("frames=%d reason=%s", res.Frames, res.Reason)
	}
}

func TestEachConditionLatchesOnce(t *testing.T) {
	a, now := active(t)
	for i := 0; i < 20; i++ {
		a.Observe(tilted(), now.Add(time.Duration(i)*33*time.Millisecond))
		a.Observe(steadyFrame(), now.Add(time.Duration(i)*33*time.Millisecond+time.Millisecond))
	}
	if a.ErrorCount() != 1 {
		t.Fatalf("repeated balance violations counted %d times", a.ErrorCount())
	}
	res := a.Finish(now.Add(2 * time.Second))
	if !res.BalanceError || res.HeelError || res.ArmError {
		t.Errorf("unexpected flags %+v", res)
	}
	if !res.Pass {
		t.Error("one error should pass")
	}
}

func TestTwoErrorsFail(t *testing.T) {
	a, now := active(t)
	a.Observe(heelGap(), now)
	a.Observe(armsOut(), now.Add(time.Second))
	res := a.Finish(now.Add(2 * time.Second))
	if res.ErrorCount != 2 || res.Pass {
		t.Errorf("errors=%d pass=%v, want 2 false", res.ErrorCount, res.Pass)
	}
}

func TestHeelErrorNeedsBothGaps(t *testing.T) {
	a, now := active(t)
	a.Observe(with(steadyFrame(), landmark.RightToe, landmark.Point{X: 0.70, Y: 0.84}), now)
	if a.ErrorCount() != 0 {
		t.Error("a single wide gap should not count")
	}
}

func TestCountdownFramesIgnored(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	start := time.Unix(0, 0)
	a.Begin(start)
	if a.Observe(heelGap(), start.Add(2*time.Second)) {
		t.Fatal("frame during countdown should be ignored")
	}
	res := a.Finish(start.Add(10 * time.Second))
	if res.ErrorCount != 0 || res.Frames != 0 {
		t.Errorf("countdown frame leaked into result %+v", res)
	}
}

func TestNoQualifyingFramesIsInsufficient(t *testing.T) {
	a, now := active(t)
	a.Observe(landmark.Frame{}, now)
	res := a.Finish(now.Add(time.Second))
	if res.Pass || res.Reason != results.ReasonInsufficientData {
		t.Errorf("expected insufficient data, got %+v", res)
	}
}

func TestBeginResetsLatches(t *testing.T) {
	a, now := active(t)
	a.Observe(tilted(), now)
	a.Observe(heelGap(), now.Add(time.Millisecond))

	a.Begin(now.Add(time.Minute))
	later := now.Add(time.Minute + 4*time.Second)
	a.Observe(steadyFrame(), later)
	res := a.Finish(later.Add(time.Second))
	if res.ErrorCount != 0 || res.BalanceError || res.HeelError {
		t.Errorf("state carried across windows: %+v", res)
	}
}

func TestFallAndStumbleAreInformational(t *testing.T) {
	a, now := active(t)
	f := steadyFrame()
	f = with(f, landmark.LeftHip, landmark.Point{X: 0.47, Y: 0.95})
	f = with(f, landmark.RightHip, landmark.Point{X: 0.53, Y: 0.70})
	a.Observe(f, now)
	res := a.Finish(now.Add(time.Second))
	if res.StumbleFrames != 1 {
		t.Errorf("stumble frames = %d, want 1", res.StumbleFrames)
	}
	if res.ErrorCount != 0 {
		t.Errorf("stumble must not add errors, got %d", res.ErrorCount)
	}
}

func TestDebounceBoundsRandomFrames(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 100; trial++ {
		a, now := active(t)
		for i := 0; i < 60; i++ {
			var f landmark.Frame
			for id := 0; id < landmark.NumPosePoints; id++ {
				if rng.Intn(5) > 0 {
					f.Set(id, landmark.Point{X: rng.Float64(), Y: rng.Float64()})
				}
			}
			a.Observe(f, now.Add(time.Duration(i)*33*time.Millisecond))
		}
		res := a.Finish(now.Add(3 * time.Second))
		flags := 0
		for _, b := range []bool{res.HeelError, res.BalanceError, res.ArmError} {
			if b {
				flags++
			}
		}
		if res.ErrorCount < 0 || res.ErrorCount > 3 || res.ErrorCount != flags {
			t.Fatalf("trial %d: errors=%d flags=%d", trial, res.ErrorCount, flags)
		}
	}
}

// #endregion verdict-tests

// #region run-tests

func TestRunStopsOnSignal(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	cfg := DefaultConfig()
	cfg.Countdown = 0
	cfg.Duration = 0
	a := NewAnalyzer(cfg, clock)

	frames := make(chan landmark.PoseMessage)
	stop := make(chan struct{})
	done := make(chan results.GaitResult, 1)
	go func() {
		res, err := a.Run(context.Background(), frames, stop)
		if err != nil {
			t.Errorf("run: %v", err)
		}
		done <- res
	}()

	frames <- landmark.PoseMessage{Frame: heelGap()}
	frames <- landmark.PoseMessage{Frame: steadyFrame()}
	frames <- landmark.PoseMessage{Frame: armsOut()}
	close(stop)

	res := <-done
	if res.ErrorCount != 2 || res.Pass {
		t.Errorf("errors=%d pass=%v, want 2 false", res.ErrorCount, res.Pass)
	}
	if res.Frames != 3 {
		t.Errorf("frames = %d, want 3", res.Frames)
	}
	if clock.Timers() != 0 {
		t.Error("unbounded walk should not arm a timer")
	}
}

func TestErrorCountReadableDuringRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Countdown = 0
	cfg.Duration = 0
	a := NewAnalyzer(cfg, timeutil.NewMockClock(time.Unix(100, 0)))

	frames := make(chan landmark.PoseMessage)
	stop := make(chan struct{})
	done := make(chan results.GaitResult, 1)
	go func() {
		res, _ := a.Run(context.Background(), frames, stop)
		done <- res
	}()

	quit := make(chan struct{})
	seen := make(chan int, 1)
	go func() {
		peak := 0
		for {
			select {
			case <-quit:
				seen <- peak
				return
			default:
				if n := a.ErrorCount(); n > peak {
					peak = n
				}
			}
		}
	}()

	for i := 0; i < 50; i++ {
		frames <- landmark.PoseMessage{Frame: tilted()}
	}
	close(stop)
	res := <-done
	close(quit)

	if res.ErrorCount != 1 {
		t.Errorf("errors = %d, want 1", res.ErrorCount)
	}
	if peak := <-seen; peak > 1 {
		t.Errorf("live count peaked at %d", peak)
	}
}

func TestRunEndsAtDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Countdown = 0
	cfg.Duration = 20 * time.Millisecond
	a := NewAnalyzer(cfg, timeutil.RealClock{})

	res, err := a.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pass || res.Reason != results.ReasonInsufficientData {
		t.Errorf("expected insufficient data, got %+v", res)
	}
}

func TestRunCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Duration = 0
	a := NewAnalyzer(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Run(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// #endregion run-tests
