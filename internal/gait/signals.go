package gait

import (
	"math"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
)

// #region signals

// Reading holds the per-frame measurements. Each Has flag reports whether the
// points behind the measurement were present.
type Reading struct {
	Gap1    float64 // |leftHeel.x - rightToe.x|
	Gap2    float64 // |rightHeel.x - leftToe.x|
	Tilt    float64 // |leftShoulder.y - rightShoulder.y|
	ArmDist float64 // max wrist-hip horizontal distance
	HipTilt float64 // |leftHip.y - rightHip.y|
	CentreY float64 // larger y of the hip and shoulder centres

	HasGaps    bool
	HasTilt    bool
	HasArm     bool
	HasHipTilt bool
	HasCentre  bool
}

// Qualifies reports whether any of the scored conditions could be evaluated.
func (r Reading) Qualifies() bool { return r.HasGaps || r.HasTilt || r.HasArm }

// Signals measures one frame.
func Signals(f landmark.Frame) Reading {
	var r Reading

	lh, ok1 := f.Get(landmark.LeftHeel)
	rt, ok2 := f.Get(landmark.RightToe)
	rh, ok3 := f.Get(landmark.RightHeel)
	lt, ok4 := f.Get(landmark.LeftToe)
	if ok1 && ok2 && ok3 && ok4 {
		r.Gap1 = math.Abs(lh.X - rt.X)
		r.Gap2 = math.Abs(rh.X - lt.X)
		r.HasGaps = true
	}

	ls, okLS := f.Get(landmark.LeftShoulder)
	rs, okRS := f.Get(landmark.RightShoulder)
	if okLS && okRS {
		r.Tilt = math.Abs(ls.Y - rs.Y)
		r.HasTilt = true
	}

	lhip, okLH := f.Get(landmark.LeftHip)
	rhip, okRH := f.Get(landmark.RightHip)
	if lw, ok := f.Get(landmark.LeftWrist); ok && okLH {
		r.ArmDist = math.Abs(lw.X - lhip.X)
		r.HasArm = true
	}
	if rw, ok := f.Get(landmark.RightWrist); ok && okRH {
		r.ArmDist = math.Max(r.ArmDist, math.Abs(rw.X-rhip.X))
		r.HasArm = true
	}

	if okLH && okRH {
		r.HipTilt = math.Abs(lhip.Y - rhip.Y)
		r.HasHipTilt = true
		r.CentreY = (lhip.Y + rhip.Y) / 2
		r.HasCentre = true
	}
	if okLS && okRS {
		c := (ls.Y + rs.Y) / 2
		if !r.HasCentre || c > r.CentreY {
			r.CentreY = c
		}
		r.HasCentre = true
	}
	return r
}

// #endregion signals
