package landmark

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// #region point-json

// UnmarshalJSON accepts either [x, y] or {"x": .., "y": ..}.
func (p *Point) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var xy []float64
		if err := json.Unmarshal(data, &xy); err != nil {
			return fmt.Errorf("decode point: %w", err)
		}
		if len(xy) < 2 {
			return fmt.Errorf("decode point: want 2 coordinates, got %d", len(xy))
		}
		p.X, p.Y = xy[0], xy[1]
		return nil
	}
	var obj struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode point: %w", err)
	}
	p.X, p.Y = obj.X, obj.Y
	return nil
}

// #endregion point-json

// #region pose-json

// UnmarshalJSON decodes either an indexed "landmarks" array (null entries are
// absent points) or a set of named joints such as "leftAnkle".
func (m *PoseMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode pose: %w", err)
	}
	*m = PoseMessage{}

	if v, ok := raw["status"]; ok {
		_ = json.Unmarshal(v, &m.Status)
	}
	if v, ok := raw["t"]; ok {
		if err := json.Unmarshal(v, &m.T); err != nil {
			return fmt.Errorf("decode pose t: %w", err)
		}
	}

	if v, ok := raw["landmarks"]; ok {
		var entries []json.RawMessage
		if err := json.Unmarshal(v, &entries); err != nil {
			return fmt.Errorf("decode landmarks: %w", err)
		}
		for i, e := range entries {
			if i >= NumPosePoints {
				break
			}
			if isNull(e) {
				continue
			}
			var p Point
			if err := json.Unmarshal(e, &p); err != nil {
				return fmt.Errorf("landmark %d: %w", i, err)
			}
			m.Frame.Set(i, p)
		}
		return nil
	}

	for _, j := range joints {
		v, ok := raw[j.name]
		if !ok || isNull(v) {
			continue
		}
		var p Point
		if err := json.Unmarshal(v, &p); err != nil {
			return fmt.Errorf("joint %s: %w", j.name, err)
		}
		m.Frame.Set(j.id, p)
	}
	return nil
}

// MarshalJSON writes the indexed form with null for absent points.
func (m PoseMessage) MarshalJSON() ([]byte, error) {
	pts := make([]*[2]float64, NumPosePoints)
	for i := range pts {
		if p, ok := m.Frame.Get(i); ok {
			pts[i] = &[2]float64{p.X, p.Y}
		}
	}
	return json.Marshal(struct {
		Landmarks []*[2]float64 `json:"landmarks"`
		Status    string        `json:"status,omitempty"`
		T         float64       `json:"t,omitempty"`
	}{pts, m.Status, m.T})
}

func isNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// #endregion pose-json
