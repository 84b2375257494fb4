package blobtrack

import (
	"image"
	"math"
	"math/rand"
)

// SearchWindowController keeps the rectangle scanned for raw blobs: the box around
// tracked positions grown by a margin, or the whole frame when there is no history.
// With small probability the whole frame is searched anyway so that objects lost
// outside the window are picked up again.
type SearchWindowController struct {
	bounds           image.Rectangle
	margin           int
	resetProbability float64
	rng              *rand.Rand
	forceFull        bool
	current          image.Rectangle
}

// NewSearchWindowController creates controller for frames of given bounds
func NewSearchWindowController(bounds image.Rectangle, margin int, resetProbability float64, seed int64) *SearchWindowController {
	return &SearchWindowController{
		bounds:           bounds,
		margin:           maxInt(margin, 0),
		resetProbability: resetProbability,
		rng:              rand.New(rand.NewSource(seed)),
		current:          bounds,
	}
}

// SetBounds changes frame bounds. Next window is the full frame
func (c *SearchWindowController) SetBounds(bounds image.Rectangle) {
	if bounds != c.bounds {
		c.bounds = bounds
		c.forceFull = true
		c.current = bounds
	}
}

// FullFrame returns the full frame rectangle
func (c *SearchWindowController) FullFrame() image.Rectangle {
	return c.bounds
}

// Current returns the last computed window
func (c *SearchWindowController) Current() image.Rectangle {
	return c.current
}

// ForceFullFrame makes the next window the full frame
func (c *SearchWindowController) ForceFullFrame() {
	c.forceFull = true
}

// Next returns window for the coming frame given tracked positions
func (c *SearchWindowController) Next(positions []Point) image.Rectangle {
	c.current = c.next(positions)
	return c.current
}

func (c *SearchWindowController) next(positions []Point) image.Rectangle {
	if c.forceFull {
		c.forceFull = false
		return c.bounds
	}
	if len(positions) == 0 {
		return c.bounds
	}
	if c.resetProbability > 0 && c.rng.Float64() < c.resetProbability {
		return c.bounds
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range positions {
		if p.IsNaN() {
			return c.bounds
		}
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	m := float64(c.margin)
	x0 := clampWindowCoord(math.Floor(minX-m), c.bounds.Min.X, c.bounds.Max.X-1)
	y0 := clampWindowCoord(math.Floor(minY-m), c.bounds.Min.Y, c.bounds.Max.Y-1)
	x1 := clampWindowCoord(math.Ceil(maxX+m), c.bounds.Min.X, c.bounds.Max.X-1)
	y1 := clampWindowCoord(math.Ceil(maxY+m), c.bounds.Min.Y, c.bounds.Max.Y-1)
	window := image.Rect(x0, y0, x1+1, y1+1).Intersect(c.bounds)
	if window.Empty() {
		return c.bounds
	}
	return window
}

func clampWindowCoord(v float64, lo, hi int) int {
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int(v)
}
