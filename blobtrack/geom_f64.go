package blobtrack

import "math"

// Point is a position in frame coordinates (x to the right, y down)
type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// IsNaN reports whether any coordinate is NaN
func (p Point) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(squaredDistance(p1, p2))
}

func squaredDistance(p1, p2 Point) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return dx*dx + dy*dy
}
