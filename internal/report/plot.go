package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/danielpatrickdp/selftest-engine/internal/samples"
)

// ErrEmptyTrace is returned when there is nothing to plot.
var ErrEmptyTrace = errors.New("empty gaze trace")

// #region plot

// PlotGazeTrace saves the smoothed horizontal iris position over the test
// window as an image. The format follows the extension of path.
func PlotGazeTrace(trace []samples.Sample, title, path string) error {
	if len(trace) == 0 {
		return ErrEmptyTrace
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Tracked X (normalized)"

	origin := trace[0].T
	pts := make(plotter.XYs, len(trace))
	for i, s := range trace {
		pts[i] = plotter.XY{X: s.T - origin, Y: s.Value}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("trace line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = color.RGBA{R: 64, G: 96, B: 200, A: 255}
	p.Add(line)

	dots, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("trace points: %w", err)
	}
	dots.Radius = vg.Points(1.5)
	p.Add(dots)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// #endregion plot
