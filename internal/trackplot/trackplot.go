// Package trackplot renders tracked object trajectories into image files
package trackplot

import (
	"fmt"
	"sort"

	"github.com/LdDl/blobtrack-go/blobtrack"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default image size
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

// New builds plot with one line per tracked object. Image Y axis points down, so Y is inverted
func New(title string, tracks map[int][]blobtrack.Point) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}

	indexes := make([]int, 0, len(tracks))
	for idx := range tracks {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for i, idx := range indexes {
		pts := make(plotter.XYs, 0, len(tracks[idx]))
		for _, pt := range tracks[idx] {
			if pt.IsNaN() {
				continue
			}
			pts = append(pts, plotter.XY{X: pt.X, Y: pt.Y})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "can't build line of object %d", idx)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("object %d", idx), line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Save renders tracks into file. Format follows file extension (png, svg, pdf, ...)
func Save(path, title string, tracks map[int][]blobtrack.Point) error {
	p, err := New(title, tracks)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "can't save plot %s", path)
	}
	return nil
}
