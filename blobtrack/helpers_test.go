package blobtrack

import (
	"image"
	"log"
	"math"
	"sort"
	"testing"
)

func muteLogger(t *testing.T) {
	t.Helper()
	SetLogger(nil)
	t.Cleanup(func() {
		SetLogger(log.Printf)
	})
}

func newFilledFrame(width, height int, value uint8) *Frame {
	f := NewGrayFrame(width, height)
	f.Fill(value)
	return f
}

func drawDisk(f *Frame, cx, cy, r float64, value uint8) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			if dx*dx+dy*dy <= r*r {
				f.Set(x, y, value)
			}
		}
	}
}

// drawEllipse draws filled ellipse with semi-axes a (along theta) and b. Theta is in image coordinates, degrees
func drawEllipse(f *Frame, cx, cy, a, b, theta float64, value uint8) {
	c := math.Cos(deg2rad(theta))
	s := math.Sin(deg2rad(theta))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			u := dx*c + dy*s
			v := -dx*s + dy*c
			if (u*u)/(a*a)+(v*v)/(b*b) <= 1 {
				f.Set(x, y, value)
			}
		}
	}
}

func drawRect(f *Frame, r image.Rectangle, value uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			f.Set(x, y, value)
		}
	}
}

// maskPoints returns every non-zero pixel of the mask inside window
func maskPoints(mask *Frame, window image.Rectangle) []image.Point {
	var pts []image.Point
	for y := window.Min.Y; y < window.Max.Y; y++ {
		for x := window.Min.X; x < window.Max.X; x++ {
			if mask.At(x, y) != 0 {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	return pts
}

// bfsComponents labels 8-connected components inside window by flood fill.
// Every component is a sorted list of linear pixel indexes; components are sorted by first index.
func bfsComponents(mask *Frame, window image.Rectangle) [][]int {
	window = window.Intersect(mask.Bounds())
	visited := make(map[image.Point]bool)
	var comps [][]int
	for y := window.Min.Y; y < window.Max.Y; y++ {
		for x := window.Min.X; x < window.Max.X; x++ {
			start := image.Pt(x, y)
			if mask.At(x, y) == 0 || visited[start] {
				continue
			}
			var comp []int
			queue := []image.Point{start}
			visited[start] = true
			for len(queue) > 0 {
				p := queue[0]
				queue = queue[1:]
				comp = append(comp, p.Y*mask.Width+p.X)
				for _, d := range contourDirections {
					q := p.Add(d)
					if !q.In(window) || visited[q] || mask.At(q.X, q.Y) == 0 {
						continue
					}
					visited[q] = true
					queue = append(queue, q)
				}
			}
			sort.Ints(comp)
			comps = append(comps, comp)
		}
	}
	sortComponents(comps)
	return comps
}

func rawBlobComponents(blobs []*RawBlob, width int) [][]int {
	comps := make([][]int, 0, len(blobs))
	for _, rb := range blobs {
		comp := make([]int, 0, len(rb.Pixels))
		for _, p := range rb.Pixels {
			comp = append(comp, p.Y*width+p.X)
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	sortComponents(comps)
	return comps
}

func sortComponents(comps [][]int) {
	sort.Slice(comps, func(i, j int) bool {
		return comps[i][0] < comps[j][0]
	})
}
