// Package config loads engine settings from a YAML file and SELFTEST_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/selftest-engine/internal/gait"
	"github.com/danielpatrickdp/selftest-engine/internal/gaze"
	"github.com/danielpatrickdp/selftest-engine/internal/speech"
)

// EnvPrefix prefixes every environment override, e.g. SELFTEST_STORE_PATH.
const EnvPrefix = "SELFTEST"

// #region types

// Config is the full engine configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Streams  StreamsConfig  `mapstructure:"streams"`
	Gaze     GazeConfig     `mapstructure:"gaze"`
	Gait     GaitConfig     `mapstructure:"gait"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Advisory AdvisoryConfig `mapstructure:"advisory"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StreamsConfig struct {
	GazeURL        string        `mapstructure:"gaze_url"`
	GaitURL        string        `mapstructure:"gait_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

type GazeConfig struct {
	Duration         time.Duration `mapstructure:"duration"`
	Alpha            float64       `mapstructure:"alpha"`
	BufferSize       int           `mapstructure:"buffer_size"`
	MinStep          time.Duration `mapstructure:"min_step"`
	MinSamples       int           `mapstructure:"min_samples"`
	PassScore        float64       `mapstructure:"pass_score"`
	SmoothnessWeight float64       `mapstructure:"smoothness_weight"`
	JerkinessWeight  float64       `mapstructure:"jerkiness_weight"`
	KeepTrace        bool          `mapstructure:"keep_trace"`
}

type GaitConfig struct {
	Countdown      time.Duration `mapstructure:"countdown"`
	Duration       time.Duration `mapstructure:"duration"`
	HeelGap        float64       `mapstructure:"heel_gap"`
	MaxTilt        float64       `mapstructure:"max_tilt"`
	MaxArmDist     float64       `mapstructure:"max_arm_dist"`
	PassMaxErrors  int           `mapstructure:"pass_max_errors"`
	FallY          float64       `mapstructure:"fall_y"`
	StumbleHipTilt float64       `mapstructure:"stumble_hip_tilt"`
}

type SpeechConfig struct {
	PassSimilarity float64       `mapstructure:"pass_similarity"`
	ListenTimeout  time.Duration `mapstructure:"listen_timeout"`
	Clamp          bool          `mapstructure:"clamp"`
	Phrases        []string      `mapstructure:"phrases"`
}

// AdvisoryConfig selects the advice transport: "grpc", "http" or "none".
type AdvisoryConfig struct {
	Transport string        `mapstructure:"transport"`
	Addr      string        `mapstructure:"addr"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// #endregion types

// #region defaults

// Default returns the built-in configuration.
func Default() Config {
	g, w, s := gaze.DefaultConfig(), gait.DefaultConfig(), speech.DefaultConfig()
	return Config{
		Store: StoreConfig{Path: DefaultStorePath()},
		Log:   LogConfig{Level: "info", Format: "text"},
		Streams: StreamsConfig{
			GazeURL:        "ws://localhost:8765/iris",
			GaitURL:        "ws://localhost:8766/pose",
			ReconnectDelay: 2 * time.Second,
		},
		Gaze: GazeConfig{
			Duration:         g.Duration,
			Alpha:            g.Alpha,
			BufferSize:       g.BufferSize,
			MinStep:          g.MinStep,
			MinSamples:       g.MinSamples,
			PassScore:        g.PassScore,
			SmoothnessWeight: g.SmoothnessWeight,
			JerkinessWeight:  g.JerkinessWeight,
			KeepTrace:        g.KeepTrace,
		},
		Gait: GaitConfig{
			Countdown:      w.Countdown,
			Duration:       w.Duration,
			HeelGap:        w.HeelGap,
			MaxTilt:        w.MaxTilt,
			MaxArmDist:     w.MaxArmDist,
			PassMaxErrors:  w.PassMaxErrors,
			FallY:          w.FallY,
			StumbleHipTilt: w.StumbleHipTilt,
		},
		Speech: SpeechConfig{
			PassSimilarity: s.PassSimilarity,
			ListenTimeout:  s.ListenTimeout,
			Clamp:          s.Clamp,
			Phrases:        append([]string(nil), speech.DefaultPhrases...),
		},
		Advisory: AdvisoryConfig{
			Transport: "none",
			Addr:      "localhost:50051",
			URL:       "http://localhost:3000",
			Timeout:   30 * time.Second,
		},
	}
}

// settings flattens c into dotted viper keys. Durations are written in
// their string form so the YAML stays readable.
func settings(c Config) map[string]any {
	return map[string]any{
		"store.path":              c.Store.Path,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
		"streams.gaze_url":        c.Streams.GazeURL,
		"streams.gait_url":        c.Streams.GaitURL,
		"streams.reconnect_delay": c.Streams.ReconnectDelay.String(),
		"gaze.duration":           c.Gaze.Duration.String(),
		"gaze.alpha":              c.Gaze.Alpha,
		"gaze.buffer_size":        c.Gaze.BufferSize,
		"gaze.min_step":           c.Gaze.MinStep.String(),
		"gaze.min_samples":        c.Gaze.MinSamples,
		"gaze.pass_score":         c.Gaze.PassScore,
		"gaze.smoothness_weight":  c.Gaze.SmoothnessWeight,
		"gaze.jerkiness_weight":   c.Gaze.JerkinessWeight,
		"gaze.keep_trace":         c.Gaze.KeepTrace,
		"gait.countdown":          c.Gait.Countdown.String(),
		"gait.duration":           c.Gait.Duration.String(),
		"gait.heel_gap":           c.Gait.HeelGap,
		"gait.max_tilt":           c.Gait.MaxTilt,
		"gait.max_arm_dist":       c.Gait.MaxArmDist,
		"gait.pass_max_errors":    c.Gait.PassMaxErrors,
		"gait.fall_y":             c.Gait.FallY,
		"gait.stumble_hip_tilt":   c.Gait.StumbleHipTilt,
		"speech.pass_similarity":  c.Speech.PassSimilarity,
		"speech.listen_timeout":   c.Speech.ListenTimeout.String(),
		"speech.clamp":            c.Speech.Clamp,
		"speech.phrases":          c.Speech.Phrases,
		"advisory.transport":      c.Advisory.Transport,
		"advisory.addr":           c.Advisory.Addr,
		"advisory.url":            c.Advisory.URL,
		"advisory.timeout":        c.Advisory.Timeout.String(),
	}
}

// #endregion defaults

// #region paths

func xdgHome(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/selftest/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgHome("XDG_CONFIG_HOME", ".config"), "selftest", "config.yaml")
}

// DefaultStorePath returns $XDG_DATA_HOME/selftest/selftest.db.
func DefaultStorePath() string {
	return filepath.Join(xdgHome("XDG_DATA_HOME", ".local", "share"), "selftest", "selftest.db")
}

// #endregion paths

// #region load

// Load reads path on top of the defaults and applies environment overrides.
// A missing file is not an error. An empty path means DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	v := viper.New()
	for k, val := range settings(Default()) {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// #endregion load

// #region validate

// Validate checks ranges that would make a test meaningless.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Store.Path != "", "store.path is empty")
	check(c.Streams.ReconnectDelay > 0, "streams.reconnect_delay must be > 0")
	check(c.Gaze.Duration > 0, "gaze.duration must be > 0")
	check(c.Gaze.Alpha > 0 && c.Gaze.Alpha <= 1, "gaze.alpha must be in (0, 1], got %v", c.Gaze.Alpha)
	check(c.Gaze.BufferSize >= 3, "gaze.buffer_size must be >= 3, got %d", c.Gaze.BufferSize)
	check(c.Gaze.MinStep > 0, "gaze.min_step must be > 0")
	check(c.Gaze.PassScore > 0, "gaze.pass_score must be > 0")
	check(c.Gait.Countdown >= 0, "gait.countdown must be >= 0")
	check(c.Gait.HeelGap > 0, "gait.heel_gap must be > 0")
	check(c.Gait.MaxTilt > 0, "gait.max_tilt must be > 0")
	check(c.Gait.MaxArmDist > 0, "gait.max_arm_dist must be > 0")
	check(c.Gait.PassMaxErrors > 0, "gait.pass_max_errors must be > 0")
	check(c.Speech.PassSimilarity > 0, "speech.pass_similarity must be > 0")
	check(c.Speech.ListenTimeout > 0, "speech.listen_timeout must be > 0")
	switch c.Advisory.Transport {
	case "none":
	case "grpc":
		check(c.Advisory.Addr != "", "advisory.addr is required for grpc")
	case "http":
		check(c.Advisory.URL != "", "advisory.url is required for http")
	default:
		errs = append(errs, fmt.Errorf("advisory.transport %q: want grpc, http or none", c.Advisory.Transport))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion validate

// #region write

// WriteDefault writes the default configuration to path as YAML. It refuses
// to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	out, err := yaml.Marshal(nest(settings(Default())))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// nest turns dotted keys back into the section layout of the YAML file.
func nest(flat map[string]any) map[string]map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]map[string]any)
	for _, k := range keys {
		section, leaf, _ := strings.Cut(k, ".")
		if out[section] == nil {
			out[section] = make(map[string]any)
		}
		out[section][leaf] = flat[k]
	}
	return out
}

// #endregion write

// #region converters

// GazeSettings returns the analyzer configuration.
func (c Config) GazeSettings() gaze.Config {
	g := c.Gaze
	return gaze.Config{
		Duration:         g.Duration,
		Alpha:            g.Alpha,
		BufferSize:       g.BufferSize,
		MinStep:          g.MinStep,
		MinSamples:       g.MinSamples,
		PassScore:        g.PassScore,
		SmoothnessWeight: g.SmoothnessWeight,
		JerkinessWeight:  g.JerkinessWeight,
		KeepTrace:        g.KeepTrace,
	}
}

// GaitSettings returns the analyzer configuration.
func (c Config) GaitSettings() gait.Config {
	g := c.Gait
	return gait.Config{
		Countdown:      g.Countdown,
		Duration:       g.Duration,
		HeelGap:        g.HeelGap,
		MaxTilt:        g.MaxTilt,
		MaxArmDist:     g.MaxArmDist,
		PassMaxErrors:  g.PassMaxErrors,
		FallY:          g.FallY,
		StumbleHipTilt: g.StumbleHipTilt,
	}
}

// SpeechSettings returns the analyzer configuration.
func (c Config) SpeechSettings() speech.Config {
	return speech.Config{
		PassSimilarity: c.Speech.PassSimilarity,
		ListenTimeout:  c.Speech.ListenTimeout,
		Clamp:          c.Speech.Clamp,
	}
}

// #endregion converters
