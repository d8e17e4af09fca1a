package keyframe

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// NewPlot plots the rotation curves of a track against time.
func NewPlot(t *Track) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = t.Bone + " (" + t.Order.String() + ")"
	p.X.Label.Text = "time [s]"
	p.Y.Label.Text = "angle [deg]"
	p.Add(plotter.NewGrid())

	for axis, name := range []string{"x", "y", "z"} {
		pts := make(plotter.XYs, t.Len())
		for i := range pts {
			pts[i].X = t.Times[i]
			pts[i].Y = t.Rotations[i].Get(axis)
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", t.Bone, name)
		}
		l.Color = plotutil.Color(axis)
		p.Add(l)
		p.Legend.Add(name, l)
	}
	return p, nil
}

// SavePlot writes the curves of t to path. The format follows the extension (png, svg, pdf...).
func SavePlot(t *Track, path string) error {
	p, err := NewPlot(t)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
