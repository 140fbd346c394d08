package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
	"github.com/danielpatrickdp/selftest-engine/internal/samples"
	"github.com/danielpatrickdp/selftest-engine/internal/session"
)

func summary(gazePass, gaitPass, speechPass bool) session.Summary {
	snap := results.Snapshot{
		Gaze: &results.GazeResult{Score: 97.5, Pass: gazePass, SampleCount: 40, Reason: results.ReasonScored,
			Trace: []samples.Sample{{Value: 0.5, T: 0}}},
		Gait:   &results.GaitResult{ErrorCount: 1, Pass: gaitPass, Frames: 120, Reason: results.ReasonScored},
		Speech: &results.SpeechResult{Similarity: 88, Pass: speechPass, Transcript: "the quick brown fox", ExpectedPhrase: "The quick brown fox", Reason: results.ReasonScored},
	}
	return session.Summary{ID: "s-1", Snapshot: snap, Verdict: risk.Tally(snap)}
}

func TestRenderTextLowRisk(t *testing.T) {
	s := summary(true, true, true)
	s.Advice = risk.Advice{State: risk.AdviceReady, Text: "You seem fine."}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "Session s-1")
	assert.Contains(t, out, "score 97.50")
	assert.Contains(t, out, "errors 1")
	assert.Contains(t, out, "similarity 88%")
	assert.Contains(t, out, "Low Risk")
	assert.Contains(t, out, "You seem fine.")
	assert.NotContains(t, out, RideLink)
}

func TestRenderTextHighRiskSuggestsRide(t *testing.T) {
	s := summary(false, false, true)
	s.Advice = risk.Advice{State: risk.AdviceUnavailable, Err: errors.New("down")}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "High Risk")
	assert.Contains(t, out, "advice unavailable")
	assert.Contains(t, out, RideLink)
}

func TestRenderTextPartial(t *testing.T) {
	snap := results.Snapshot{Gaze: &results.GazeResult{Pass: false, Reason: results.ReasonInsufficientData}}
	s := session.Summary{ID: "p", Snapshot: snap, Verdict: risk.Tally(snap)}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, s))
	out := buf.String()

	assert.Contains(t, out, "insufficient data")
	assert.Contains(t, out, "not taken")
	assert.Contains(t, out, "Moderate Risk")
	assert.Contains(t, out, "partial, 1 of 3 tests")
}

func TestTierLabel(t *testing.T) {
	assert.Equal(t, "Low Risk", TierLabel(risk.TierLow))
	assert.Equal(t, "Moderate Risk", TierLabel(risk.TierModerate))
	assert.Equal(t, "High Risk", TierLabel(risk.TierHigh))
	assert.Equal(t, "odd", TierLabel(risk.Tier("odd")))
}

func TestRenderJSON(t *testing.T) {
	s := summary(false, false, false)
	s.Advice = risk.Advice{State: risk.AdviceUnavailable, Err: errors.New("timeout")}

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, s))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "high", doc["tier"])
	assert.Equal(t, "High Risk", doc["tierLabel"])
	assert.EqualValues(t, 3, doc["failCount"])
	assert.Equal(t, true, doc["complete"])
	assert.Equal(t, "unavailable", doc["adviceState"])
	assert.Equal(t, "timeout", doc["adviceError"])
	assert.Equal(t, RideLink, doc["rideLink"])

	gaze, ok := doc["gazeResult"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 97.5, gaze["score"])
	assert.NotContains(t, gaze, "trace")
	assert.Contains(t, doc, "heelToeResult")
	assert.Contains(t, doc, "slurredSpeechResult")
}

func TestNewDocumentKeepsSnapshotTrace(t *testing.T) {
	s := summary(true, true, true)
	d := NewDocument(s)
	assert.Nil(t, d.Gaze.Trace)
	assert.Len(t, s.Snapshot.Gaze.Trace, 1)
}

func TestPlotGazeTrace(t *testing.T) {
	trace := make([]samples.Sample, 30)
	for i := range trace {
		trace[i] = samples.Sample{Value: 0.5 + float64(i%5)/100, T: 10 + float64(i)*0.033}
	}
	path := filepath.Join(t.TempDir(), "plots", "gaze.png")

	require.NoError(t, PlotGazeTrace(trace, "gaze", path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotGazeTraceEmpty(t *testing.T) {
	err := PlotGazeTrace(nil, "gaze", filepath.Join(t.TempDir(), "x.png"))
	assert.ErrorIs(t, err, ErrEmptyTrace)
}
