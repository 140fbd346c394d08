// Package replay runs recorded tracker fixtures through the analyzers offline
// and compares the outcome with the fixture's expectations.
package replay

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/selftest-engine/internal/gait"
	"github.com/danielpatrickdp/selftest-engine/internal/gaze"
	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
	"github.com/danielpatrickdp/selftest-engine/internal/speech"
)

// #region types
// Config bundles the analyzer configs for a replay run.
type Config struct {
	Gaze   gaze.Config
	Gait   gait.Config
	Speech speech.Config
}

// DefaultConfig returns defaults for all three analyzers.
func DefaultConfig() Config {
	return Config{
		Gaze:   gaze.DefaultConfig(),
		Gait:   gait.DefaultConfig(),
		Speech: speech.DefaultConfig(),
	}
}

// Outcome is the result of replaying one fixture.
type Outcome struct {
	Description string
	Snapshot    results.Snapshot
	Verdict     risk.Verdict
	Mismatches  []string
}

// Matched reports whether every expectation held.
func (o Outcome) Matched() bool { return len(o.Mismatches) == 0 }

// Summary provides aggregate stats over several outcomes.
type Summary struct {
	Total   int
	Matched int
	Failed  int
	ByTier  map[risk.Tier]int
}

// #endregion types

// #region replay
// origin anchors every fixture window so results are reproducible.
var origin = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func at(t float64) time.Time {
	return origin.Add(time.Duration(t * float64(time.Second)))
}

// Run replays f under cfg. Sections absent from the fixture leave their
// record absent, so the verdict may be partial.
func Run(f *Fixture, cfg Config) Outcome {
	var snap results.Snapshot

	if f.Gaze != nil {
		a := gaze.NewAnalyzer(cfg.Gaze, nil)
		a.Begin(origin)
		for _, s := range f.Gaze.Samples {
			a.Observe(s.ToIris(), at(s.T))
		}
		res := a.Finish(origin.Add(cfg.Gaze.Duration))
		snap.Gaze = &res
	}

	if f.Gait != nil {
		a := gait.NewAnalyzer(cfg.Gait, nil)
		a.Begin(origin)
		end := f.Gait.StoppedAt
		for _, fr := range f.Gait.Frames {
			if f.Gait.StoppedAt > 0 && fr.T >= f.Gait.StoppedAt {
				break
			}
			a.Observe(fr.ToFrame(), at(fr.T))
			if fr.T > end {
				end = fr.T
			}
		}
		res := a.Finish(at(end))
		snap.Gait = &res
	}

	if f.Speech != nil {
		res := speech.Evaluate(f.Speech.Transcript, f.Speech.Phrase, cfg.Speech, origin)
		snap.Speech = &res
	}

	out := Outcome{
		Description: f.Description,
		Snapshot:    snap,
		Verdict:     risk.Tally(snap),
	}
	out.Mismatches = check(out, f.Expected)
	return out
}

func check(o Outcome, exp FixtureExpected) []string {
	var miss []string
	fail := func(format string, args ...any) {
		miss = append(miss, fmt.Sprintf(format, args...))
	}

	if exp.Tier != "" && string(o.Verdict.Tier) != exp.Tier {
		fail("tier: got %s, want %s", o.Verdict.Tier, exp.Tier)
	}
	if exp.FailCount != nil && o.Verdict.FailCount != *exp.FailCount {
		fail("fail_count: got %d, want %d", o.Verdict.FailCount, *exp.FailCount)
	}
	if g := o.Snapshot.Gaze; g != nil {
		if exp.GazePass != nil && g.Pass != *exp.GazePass {
			fail("gaze_pass: got %v, want %v (score %.1f)", g.Pass, *exp.GazePass, g.Score)
		}
		if exp.GazeReason != "" && string(g.Reason) != exp.GazeReason {
			fail("gaze_reason: got %s, want %s", g.Reason, exp.GazeReason)
		}
	} else if exp.GazePass != nil || exp.GazeReason != "" {
		fail("gaze: expected a result but fixture has no gaze section")
	}
	if g := o.Snapshot.Gait; g != nil {
		if exp.GaitErrors != nil && g.ErrorCount != *exp.GaitErrors {
			fail("gait_errors: got %d, want %d", g.ErrorCount, *exp.GaitErrors)
		}
		if exp.GaitPass != nil && g.Pass != *exp.GaitPass {
			fail("gait_pass: got %v, want %v", g.Pass, *exp.GaitPass)
		}
	} else if exp.GaitErrors != nil || exp.GaitPass != nil {
		fail("gait: expected a result but fixture has no gait section")
	}
	if sp := o.Snapshot.Speech; sp != nil {
		if exp.SpeechPass != nil && sp.Pass != *exp.SpeechPass {
			fail("speech_pass: got %v, want %v (similarity %.1f)", sp.Pass, *exp.SpeechPass, sp.Similarity)
		}
	} else if exp.SpeechPass != nil {
		fail("speech: expected a result but fixture has no speech section")
	}
	return miss
}

// Summarize computes aggregate stats from replay outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByTier: make(map[risk.Tier]int)}
	for _, o := range outcomes {
		if o.Matched() {
			s.Matched++
		} else {
			s.Failed++
		}
		s.ByTier[o.Verdict.Tier]++
	}
	return s
}

// #endregion replay
