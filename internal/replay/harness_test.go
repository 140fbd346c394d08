package replay

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
)

func load(t *testing.T, name string) *Fixture {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return f
}

func TestRun_FixturesMatchExpectations(t *testing.T) {
	for _, name := range []string{"clean.yaml", "moderate.toml", "high.json"} {
		out := Run(load(t, name), DefaultConfig())
		if !out.Matched() {
			t.Errorf("%s: mismatches %v", name, out.Mismatches)
		}
	}
}

func TestRun_CleanDetails(t *testing.T) {
	out := Run(load(t, "clean.yaml"), DefaultConfig())

	type view struct {
		GazeScore   float64
		GazeSamples int
		GaitFrames  int
		GaitErrors  int
		Similarity  float64
		Verdict     risk.Verdict
	}
	got := view{
		GazeScore:   out.Snapshot.Gaze.Score,
		GazeSamples: out.Snapshot.Gaze.SampleCount,
		GaitFrames:  out.Snapshot.Gait.Frames,
		GaitErrors:  out.Snapshot.Gait.ErrorCount,
		Similarity:  out.Snapshot.Speech.Similarity,
		Verdict:     out.Verdict,
	}
	want := view{
		GazeScore:   100,
		GazeSamples: 4,
		GaitFrames:  2,
		GaitErrors:  0,
		Similarity:  100,
		Verdict:     risk.Verdict{Tier: risk.TierLow, Present: 3, Complete: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clean replay mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_StopCutsFrames(t *testing.T) {
	f := load(t, "clean.yaml")
	f.Gait.StoppedAt = 0
	out := Run(f, DefaultConfig())
	if out.Snapshot.Gait.ErrorCount != 1 || !out.Snapshot.Gait.ArmError {
		t.Errorf("frame after the stop should count once the stop is removed: %+v", out.Snapshot.Gait)
	}
}

func TestRun_PartialFixture(t *testing.T) {
	f := &Fixture{
		Speech:   &FixtureSpeech{Phrase: "abc", Transcript: "xyz"},
		Expected: FixtureExpected{Tier: "moderate", GazePass: new(bool)},
	}
	out := Run(f, DefaultConfig())
	if out.Verdict.Complete || out.Snapshot.Gaze != nil {
		t.Errorf("expected partial verdict, got %+v", out.Verdict)
	}
	if len(out.Mismatches) != 1 {
		t.Errorf("expected one mismatch for the missing gaze section, got %v", out.Mismatches)
	}
}

func TestRun_MismatchReported(t *testing.T) {
	f := load(t, "moderate.toml")
	f.Expected.Tier = "low"
	out := Run(f, DefaultConfig())
	if out.Matched() {
		t.Fatal("expected a tier mismatch")
	}
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Verdict: risk.Verdict{Tier: risk.TierLow}},
		{Verdict: risk.Verdict{Tier: risk.TierHigh}, Mismatches: []string{"tier"}},
		{Verdict: risk.Verdict{Tier: risk.TierHigh}},
	}
	got := Summarize(outcomes)
	want := Summary{Total: 3, Matched: 2, Failed: 1, ByTier: map[risk.Tier]int{risk.TierLow: 1, risk.TierHigh: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_GazeInsufficientReason(t *testing.T) {
	out := Run(load(t, "high.json"), DefaultConfig())
	if out.Snapshot.Gaze.Reason != results.ReasonInsufficientData {
		t.Errorf("reason = %s", out.Snapshot.Gaze.Reason)
	}
}
