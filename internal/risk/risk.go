// Package risk combines the three test verdicts into a risk tier and issues
// the one advisory request of a completed session.
package risk

import (
	"github.com/danielpatrickdp/selftest-engine/internal/advisory"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
)

// #region tier

// Tier is the aggregated risk level.
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
)

// TierFor maps a fail count onto a tier.
func TierFor(failCount int) Tier {
	switch {
	case failCount <= 0:
		return TierLow
	case failCount == 1:
		return TierModerate
	default:
		return TierHigh
	}
}

// #endregion tier

// #region verdict

// Verdict is the aggregated view of a session. It is authoritative only when
// Complete is true; absent records are left out of FailCount.
type Verdict struct {
	Tier        Tier `json:"tier"`
	FailCount   int  `json:"failCount"`
	Present     int  `json:"present"`
	Complete    bool `json:"complete"`
	SuggestRide bool `json:"suggestRide"`
}

// Tally computes the verdict for snap.
func Tally(snap results.Snapshot) Verdict {
	var v Verdict
	count := func(present, pass bool) {
		if !present {
			return
		}
		v.Present++
		if !pass {
			v.FailCount++
		}
	}
	count(snap.Gaze != nil, snap.Gaze != nil && snap.Gaze.Pass)
	count(snap.Gait != nil, snap.Gait != nil && snap.Gait.Pass)
	count(snap.Speech != nil, snap.Speech != nil && snap.Speech.Pass)

	v.Tier = TierFor(v.FailCount)
	v.Complete = snap.Complete()
	v.SuggestRide = v.Tier == TierHigh
	return v
}

// RequestFor builds the advisory request from a complete snapshot.
func RequestFor(snap results.Snapshot) advisory.Request {
	var req advisory.Request
	if snap.Gaze != nil {
		req.Score = snap.Gaze.Score
	}
	if snap.Gait != nil {
		req.Errors = snap.Gait.ErrorCount
	}
	if snap.Speech != nil {
		req.Similarity = snap.Speech.Similarity
	}
	return req
}

// #endregion verdict
