package gaze

import "time"

// #region config

// Config holds the tuning knobs for the gaze-nystagmus test.
type Config struct {
	Duration         time.Duration // test window length
	Alpha            float64       // exponential smoothing factor for the tracked x
	BufferSize       int           // samples kept for scoring (FIFO)
	MinStep          time.Duration // floor applied to each dt before dividing
	MinSamples       int           // below this the result is insufficient data
	PassScore        float64       // score >= this passes
	SmoothnessWeight float64       // score penalty per unit of velocity std-dev
	JerkinessWeight  float64       // score penalty per unit of max velocity spike
	KeepTrace        bool          // copy the final buffer into the result
}

// DefaultConfig returns the standard 10 s test configuration.
func DefaultConfig() Config {
	return Config{
		Duration:         10 * time.Second,
		Alpha:            0.2,
		BufferSize:       50,
		MinStep:          50 * time.Millisecond,
		MinSamples:       3,
		PassScore:        70,
		SmoothnessWeight: 50,
		JerkinessWeight:  200,
		KeepTrace:        true,
	}
}

// #endregion config

// #region metrics

// Metrics are the features extracted from one velocity series.
type Metrics struct {
	Smoothness float64 // population std-dev of velocity
	Jerkiness  float64 // max |v_i - v_{i-1}|
}

// #endregion metrics
