// Package results defines the completed test records and the session-scoped
// store the analyzers hand them off through.
package results

import (
	"time"

	"github.com/danielpatrickdp/selftest-engine/internal/samples"
)

// #region key

// Key names one record slot in a session.
type Key string

const (
	KeyGaze   Key = "gaze"
	KeyGait   Key = "gait"
	KeySpeech Key = "speech"
)

// Keys lists every record slot in presentation order.
var Keys = []Key{KeyGaze, KeyGait, KeySpeech}

// #endregion key

// #region reason

// Reason explains how a verdict was reached.
type Reason string

const (
	ReasonScored           Reason = "scored"
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonEmptyInput       Reason = "empty_input"
)

// #endregion reason

// #region record

// Record is any completed, immutable test result.
type Record interface {
	Key() Key
	Passed() bool
}

// #endregion record

// #region gaze-result

// GazeResult is the outcome of one gaze-nystagmus window.
type GazeResult struct {
	Score       float64          `json:"score"`
	Pass        bool             `json:"pass"`
	SampleCount int              `json:"sampleCount"`
	Smoothness  float64          `json:"smoothness"`
	Jerkiness   float64          `json:"jerkiness"`
	Reason      Reason           `json:"reason"`
	Trace       []samples.Sample `json:"trace,omitempty"`
	CompletedAt time.Time        `json:"completedAt"`
}

func (GazeResult) Key() Key       { return KeyGaze }
func (r GazeResult) Passed() bool { return r.Pass }

// #endregion gaze-result

// #region gait-result

// GaitResult is the outcome of one heel-to-toe walk.
type GaitResult struct {
	ErrorCount    int       `json:"errors"`
	Pass          bool      `json:"pass"`
	HeelError     bool      `json:"heelError"`
	BalanceError  bool      `json:"balanceError"`
	ArmError      bool      `json:"armError"`
	Frames        int       `json:"frames"`
	FallFrames    int       `json:"fallFrames,omitempty"`
	StumbleFrames int       `json:"stumbleFrames,omitempty"`
	Reason        Reason    `json:"reason"`
	CompletedAt   time.Time `json:"completedAt"`
}

func (GaitResult) Key() Key       { return KeyGait }
func (r GaitResult) Passed() bool { return r.Pass }

// #endregion gait-result

// #region speech-result

// SpeechResult is the outcome of one phrase repetition.
type SpeechResult struct {
	Similarity     float64   `json:"similarity"`
	Pass           bool      `json:"pass"`
	Transcript     string    `json:"transcript"`
	ExpectedPhrase string    `json:"expectedPhrase"`
	Distance       int       `json:"distance"`
	Reason         Reason    `json:"reason"`
	CompletedAt    time.Time `json:"completedAt"`
}

func (SpeechResult) Key() Key       { return KeySpeech }
func (r SpeechResult) Passed() bool { return r.Pass }

// #endregion speech-result

// #region session-info

// SessionInfo describes one stored session.
type SessionInfo struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time // zero while open
	Keys      []Key     // records present
}

// #endregion session-info
