// Package gait scores the heel-to-toe walk from full-body pose frames.
package gait

import (
	"errors"
	"time"
)

// ErrInsufficientData marks a walk in which no frame carried enough points to
// evaluate any condition.
var ErrInsufficientData = errors.New("gait: no qualifying frames")

// #region config

// Config holds the thresholds of the walk test.
type Config struct {
	Countdown      time.Duration // frames before this are ignored
	Duration       time.Duration // active length; <= 0 runs until stopped
	HeelGap        float64       // both heel-toe gaps above this is a heel error
	MaxTilt        float64       // shoulder height difference above this is a balance error
	MaxArmDist     float64       // wrist-hip distance above this is an arm error
	PassMaxErrors  int           // errorCount below this passes
	FallY          float64       // hip or shoulder centre below this y is a fall
	StumbleHipTilt float64       // hip height difference above this is a stumble
}

// DefaultConfig returns the standard walk configuration.
func DefaultConfig() Config {
	return Config{
		Countdown:      3 * time.Second,
		Duration:       30 * time.Second,
		HeelGap:        0.05,
		MaxTilt:        0.1,
		MaxArmDist:     0.15,
		PassMaxErrors:  2,
		FallY:          0.9,
		StumbleHipTilt: 0.2,
	}
}

// #endregion config
