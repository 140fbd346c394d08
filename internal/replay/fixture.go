package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/selftest-engine/internal/landmark"
)

// #region fixture-types

// Fixture is a recorded self-test: timestamped tracker output for the two
// streamed tests, the speech attempt and the expected outcome. Times are
// seconds since the start of each test window.
type Fixture struct {
	Description string          `json:"description" yaml:"description" toml:"description"`
	Gaze        *FixtureGaze    `json:"gaze,omitempty" yaml:"gaze,omitempty" toml:"gaze,omitempty"`
	Gait        *FixtureGait    `json:"gait,omitempty" yaml:"gait,omitempty" toml:"gait,omitempty"`
	Speech      *FixtureSpeech  `json:"speech,omitempty" yaml:"speech,omitempty" toml:"speech,omitempty"`
	Expected    FixtureExpected `json:"expected" yaml:"expected" toml:"expected"`
}

// FixtureGaze is the recorded iris stream.
type FixtureGaze struct {
	Samples []FixtureIris `json:"samples" yaml:"samples" toml:"samples"`
}

// FixtureIris is one iris reading. Either side may be omitted.
type FixtureIris struct {
	T     float64     `json:"t" yaml:"t" toml:"t"`
	Left  *[2]float64 `json:"left,omitempty" yaml:"left,omitempty" toml:"left,omitempty"`
	Right *[2]float64 `json:"right,omitempty" yaml:"right,omitempty" toml:"right,omitempty"`
}

// FixtureGait is the recorded pose stream. StoppedAt is when the user
// pressed stop; zero means at the last frame.
type FixtureGait struct {
	StoppedAt float64       `json:"stopped_at,omitempty" yaml:"stopped_at,omitempty" toml:"stopped_at,omitempty"`
	Frames    []FixturePose `json:"frames" yaml:"frames" toml:"frames"`
}

// FixturePose is one pose reading keyed by joint name.
type FixturePose struct {
	T      float64               `json:"t" yaml:"t" toml:"t"`
	Joints map[string][2]float64 `json:"joints" yaml:"joints" toml:"joints"`
}

// FixtureSpeech is one speech attempt.
type FixtureSpeech struct {
	Phrase     string `json:"phrase" yaml:"phrase" toml:"phrase"`
	Transcript string `json:"transcript" yaml:"transcript" toml:"transcript"`
}

// FixtureExpected lists the outcomes to check. Unset fields are not checked.
type FixtureExpected struct {
	Tier       string `json:"tier,omitempty" yaml:"tier,omitempty" toml:"tier,omitempty"`
	FailCount  *int   `json:"fail_count,omitempty" yaml:"fail_count,omitempty" toml:"fail_count,omitempty"`
	GazePass   *bool  `json:"gaze_pass,omitempty" yaml:"gaze_pass,omitempty" toml:"gaze_pass,omitempty"`
	GazeReason string `json:"gaze_reason,omitempty" yaml:"gaze_reason,omitempty" toml:"gaze_reason,omitempty"`
	GaitErrors *int   `json:"gait_errors,omitempty" yaml:"gait_errors,omitempty" toml:"gait_errors,omitempty"`
	GaitPass   *bool  `json:"gait_pass,omitempty" yaml:"gait_pass,omitempty" toml:"gait_pass,omitempty"`
	SpeechPass *bool  `json:"speech_pass,omitempty" yaml:"speech_pass,omitempty" toml:"speech_pass,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture file. The format follows the extension:
// .yaml/.yml, .toml or .json.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("fixture %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	if f.Gait == nil {
		return nil
	}
	for i, fr := range f.Gait.Frames {
		for name := range fr.Joints {
			if _, ok := landmark.JointID(name); !ok {
				return fmt.Errorf("gait frame %d: unknown joint %q", i, name)
			}
		}
	}
	return nil
}

// ToIris converts a fixture reading to a tracker message.
func (fi FixtureIris) ToIris() landmark.IrisMessage {
	msg := landmark.IrisMessage{Status: "Tracking", T: fi.T}
	if fi.Left != nil {
		msg.LeftIris = []landmark.Point{{X: fi.Left[0], Y: fi.Left[1]}}
	}
	if fi.Right != nil {
		msg.RightIris = []landmark.Point{{X: fi.Right[0], Y: fi.Right[1]}}
	}
	return msg
}

// ToFrame converts a fixture reading to a pose frame. Unknown joints are
// dropped.
func (fp FixturePose) ToFrame() landmark.Frame {
	var f landmark.Frame
	names := make([]string, 0, len(fp.Joints))
	for name := range fp.Joints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if id, ok := landmark.JointID(name); ok {
			xy := fp.Joints[name]
			f.Set(id, landmark.Point{X: xy[0], Y: xy[1]})
		}
	}
	return f
}

// #endregion fixture-loader
