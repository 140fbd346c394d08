// Package landmark holds the wire shapes produced by the external pose and
// eye trackers and the normalized frame the analyzers consume.
package landmark

import "time"

// #region point

// Point is a normalized (x, y) keypoint in [0, 1] image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// #endregion point

// #region pose-index

// NumPosePoints is the number of body points in a full pose reading.
const NumPosePoints = 33

// Body point ids used by the gait checks.
const (
	LeftShoulder  = 11
	RightShoulder = 12
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftAnkle     = 27
	RightAnkle    = 28
	LeftHeel      = 29
	RightHeel     = 30
	LeftToe       = 31 // left foot index
	RightToe      = 32 // right foot index
)

// joints lists the simplified named-joint reading in decode order. Aliases
// come first so the canonical name wins when a message carries both.
var joints = []struct {
	name string
	id   int
}{
	{"leftFootIndex", LeftToe},
	{"rightFootIndex", RightToe},
	{"leftShoulder", LeftShoulder},
	{"rightShoulder", RightShoulder},
	{"leftWrist", LeftWrist},
	{"rightWrist", RightWrist},
	{"leftHip", LeftHip},
	{"rightHip", RightHip},
	{"leftAnkle", LeftAnkle},
	{"rightAnkle", RightAnkle},
	{"leftHeel", LeftHeel},
	{"rightHeel", RightHeel},
	{"leftToe", LeftToe},
	{"rightToe", RightToe},
}

var jointNames = func() map[string]int {
	m := make(map[string]int, len(joints))
	for _, j := range joints {
		m[j.name] = j.id
	}
	return m
}()

// JointID returns the body point id for a named joint such as "leftHeel".
func JointID(name string) (int, bool) {
	id, ok := jointNames[name]
	return id, ok
}

// #endregion pose-index

// #region frame

// Frame is one tracked pose. Any point may be absent when the tracker lost it.
type Frame struct {
	points  [NumPosePoints]Point
	present uint64
}

// Set records point id. Out-of-range ids are ignored.
func (f *Frame) Set(id int, p Point) {
	if id < 0 || id >= NumPosePoints {
		return
	}
	f.points[id] = p
	f.present |= 1 << uint(id)
}

// Get returns point id and whether it is present.
func (f Frame) Get(id int) (Point, bool) {
	if id < 0 || id >= NumPosePoints || f.present&(1<<uint(id)) == 0 {
		return Point{}, false
	}
	return f.points[id], true
}

// Count returns the number of present points.
func (f Frame) Count() int {
	n := 0
	for m := f.present; m != 0; m &= m - 1 {
		n++
	}
	return n
}

// #endregion frame

// #region messages

// IrisMessage is one eye-tracker reading.
type IrisMessage struct {
	LeftIris  []Point `json:"leftIris"`
	RightIris []Point `json:"rightIris"`
	Status    string  `json:"status"`
	// T is the tracker timestamp in seconds, when the tracker provides one.
	T float64 `json:"t,omitempty"`
}

// PoseMessage is one pose-tracker reading.
type PoseMessage struct {
	Frame  Frame
	Status string
	T      float64
}

// At returns the message time: the tracker timestamp relative to origin when
// present, otherwise received.
func At(t float64, origin, received time.Time) time.Time {
	if t <= 0 {
		return received
	}
	return origin.Add(time.Duration(t * float64(time.Second)))
}

// #endregion messages
