// Package gaze scores smooth pursuit of a moving target from a stream of
// iris positions.
package gaze

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/danielpatrickdp/selftest-engine/internal/results"
	"github.com/danielpatrickdp/selftest-engine/internal/samples"
)

// ErrInsufficientData is returned when too few samples exist to score.
var ErrInsufficientData = errors.New("insufficient gaze data")

// #region velocities

// Velocities returns v_i = (x_i - x_{i-1}) / max(dt_i, minStep) for each
// consecutive pair.
func Velocities(s []samples.Sample, minStep float64) []float64 {
	if len(s) < 2 {
		return nil
	}
	v := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		dt := s[i].T - s[i-1].T
		if dt < minStep {
			dt = minStep
		}
		if dt <= 0 {
			continue
		}
		v = append(v, (s[i].Value-s[i-1].Value)/dt)
	}
	return v
}

// #endregion velocities

// #region metrics

// VelocityMetrics computes smoothness and jerkiness of a velocity series.
// Both are non-negative for any input.
func VelocityMetrics(v []float64) Metrics {
	var m Metrics
	if len(v) == 0 {
		return m
	}
	_, variance := stat.PopMeanVariance(v, nil)
	if variance > 0 && !math.IsNaN(variance) {
		m.Smoothness = math.Sqrt(variance)
	}
	if len(v) < 2 {
		return m
	}
	spikes := make([]float64, len(v)-1)
	for i := 1; i < len(v); i++ {
		spikes[i-1] = math.Abs(v[i] - v[i-1])
	}
	m.Jerkiness = floats.Max(spikes)
	return m
}

// SampleMetrics extracts Metrics from a sample window.
func SampleMetrics(s []samples.Sample, cfg Config) (Metrics, error) {
	minSamples := cfg.MinSamples
	if minSamples < 3 {
		minSamples = 3
	}
	if len(s) < minSamples {
		return Metrics{}, ErrInsufficientData
	}
	return VelocityMetrics(Velocities(s, cfg.MinStep.Seconds())), nil
}

// #endregion metrics

// #region score

// Score maps the metrics to [0, 100]. It is non-increasing in both inputs.
func Score(m Metrics, cfg Config) float64 {
	score := 100 - m.Smoothness*cfg.SmoothnessWeight - m.Jerkiness*cfg.JerkinessWeight
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Evaluate scores a sample window.
func Evaluate(s []samples.Sample, cfg Config) results.GazeResult {
	res := results.GazeResult{SampleCount: len(s)}
	m, err := SampleMetrics(s, cfg)
	if err != nil {
		res.Reason = results.ReasonInsufficientData
		return res
	}
	res.Smoothness = m.Smoothness
	res.Jerkiness = m.Jerkiness
	res.Score = Score(m, cfg)
	res.Pass = res.Score >= cfg.PassScore
	res.Reason = results.ReasonScored
	return res
}

// #endregion score
