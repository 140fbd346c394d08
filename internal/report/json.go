package report

import (
	"encoding/json"
	"io"

	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/risk"
	"github.com/danielpatrickdp/selftest-engine/internal/session"
)

// #region json

// Document is the machine-readable form of a session.
type Document struct {
	SessionID   string                `json:"sessionId"`
	Tier        risk.Tier             `json:"tier"`
	TierLabel   string                `json:"tierLabel"`
	FailCount   int                   `json:"failCount"`
	Complete    bool                  `json:"complete"`
	Gaze        *results.GazeResult   `json:"gazeResult,omitempty"`
	Gait        *results.GaitResult   `json:"heelToeResult,omitempty"`
	Speech      *results.SpeechResult `json:"slurredSpeechResult,omitempty"`
	Advice      string                `json:"advice,omitempty"`
	AdviceState string                `json:"adviceState"`
	AdviceError string                `json:"adviceError,omitempty"`
	RideLink    string                `json:"rideLink,omitempty"`
}

// NewDocument flattens s. Gaze traces are left out.
func NewDocument(s session.Summary) Document {
	d := Document{
		SessionID:   s.ID,
		Tier:        s.Verdict.Tier,
		TierLabel:   TierLabel(s.Verdict.Tier),
		FailCount:   s.Verdict.FailCount,
		Complete:    s.Verdict.Complete,
		Gait:        s.Snapshot.Gait,
		Speech:      s.Snapshot.Speech,
		Advice:      s.Advice.Text,
		AdviceState: s.Advice.State.String(),
	}
	if g := s.Snapshot.Gaze; g != nil {
		trimmed := *g
		trimmed.Trace = nil
		d.Gaze = &trimmed
	}
	if s.Advice.Err != nil {
		d.AdviceError = s.Advice.Err.Error()
	}
	if s.Verdict.SuggestRide {
		d.RideLink = RideLink
	}
	return d
}

// RenderJSON writes s as indented JSON.
func RenderJSON(w io.Writer, s session.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(s))
}

// #endregion json
