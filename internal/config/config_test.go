package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(raw), "duration: 10s") {
		t.Errorf("durations should be written as strings:\n%s", raw)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if err := WriteDefault(path, false); err == nil {
		t.Error("expected refusal to overwrite")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("forced overwrite: %v", err)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
gaze:
  duration: 15s
  pass_score: 75
gait:
  countdown: 0s
advisory:
  transport: http
  url: http://advice.local
speech:
  phrases:
    - "red lorry yellow lorry"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Default()
	want.Gaze.Duration = 15 * time.Second
	want.Gaze.PassScore = 75
	want.Gait.Countdown = 0
	want.Advisory.Transport = "http"
	want.Advisory.URL = "http://advice.local"
	want.Speech.Phrases = []string{"red lorry yellow lorry"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("override mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("SELFTEST_STORE_PATH", dbPath)
	t.Setenv("SELFTEST_GAIT_MAX_TILT", "0.2")
	t.Setenv("SELFTEST_ADVISORY_TIMEOUT", "5s")

	got, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Store.Path != dbPath || got.Gait.MaxTilt != 0.2 || got.Advisory.Timeout != 5*time.Second {
		t.Errorf("env overrides not applied: %+v", got)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"alpha zero":        func(c *Config) { c.Gaze.Alpha = 0 },
		"alpha above one":   func(c *Config) { c.Gaze.Alpha = 1.5 },
		"small buffer":      func(c *Config) { c.Gaze.BufferSize = 2 },
		"no gaze duration":  func(c *Config) { c.Gaze.Duration = 0 },
		"bad transport":     func(c *Config) { c.Advisory.Transport = "carrier-pigeon" },
		"grpc without addr": func(c *Config) { c.Advisory.Transport, c.Advisory.Addr = "grpc", "" },
		"empty store":       func(c *Config) { c.Store.Path = "" },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConverters(t *testing.T) {
	c := Default()
	c.Gaze.Alpha = 0.3
	c.Gait.HeelGap = 0.07
	c.Speech.PassSimilarity = 85

	if got := c.GazeSettings().Alpha; got != 0.3 {
		t.Errorf("gaze alpha = %v", got)
	}
	if got := c.GaitSettings().HeelGap; got != 0.07 {
		t.Errorf("gait heel gap = %v", got)
	}
	if got := c.SpeechSettings().PassSimilarity; got != 85 {
		t.Errorf("speech pass = %v", got)
	}
}
