package logging

import "time"

// #region verdict-entry
// VerdictEntry is a single row in the verdict_log table.
type VerdictEntry struct {
	SessionID    string
	Tier         string // "low" | "moderate" | "high"
	FailCount    int
	Complete     bool
	InputsJSON   string
	AdviceStatus string // "idle" | "pending" | "ready" | "unavailable"
	Advice       string
	CreatedAt    time.Time
}
// #endregion verdict-entry

// #region verdict-inputs
// VerdictInputs captures the per-test outcomes that fed one aggregation.
// Serialized as JSON into verdict_log.inputs_json so a verdict can be
// recomputed offline.
type VerdictInputs struct {
	GazeScore    *float64 `json:"gaze_score,omitempty"`
	GazePass     *bool    `json:"gaze_pass,omitempty"`
	GazeReason   string   `json:"gaze_reason,omitempty"`
	GaitErrors   *int     `json:"gait_errors,omitempty"`
	GaitPass     *bool    `json:"gait_pass,omitempty"`
	GaitReason   string   `json:"gait_reason,omitempty"`
	Similarity   *float64 `json:"similarity,omitempty"`
	SpeechPass   *bool    `json:"speech_pass,omitempty"`
	SpeechReason string   `json:"speech_reason,omitempty"`
}
// #endregion verdict-inputs
