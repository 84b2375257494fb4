package blobtrack

import "math"

// RawMoments are the accumulated raw (non-central) moments of a pixel set
type RawMoments struct {
	N   float64
	X   float64
	Y   float64
	XX  float64
	YY  float64
	XY  float64
	XXY float64
	XYY float64
	XXX float64
	YYY float64
}

// Accumulate adds one pixel
func (m *RawMoments) Accumulate(x, y float64) {
	m.N++
	m.X += x
	m.Y += y
	m.XX += x * x
	m.YY += y * y
	m.XY += x * y
	m.XXY += x * x * y
	m.XYY += x * y * y
	m.XXX += x * x * x
	m.YYY += y * y * y
}

// Merge adds moments of another pixel set
func (m *RawMoments) Merge(o RawMoments) {
	m.N += o.N
	m.X += o.X
	m.Y += o.Y
	m.XX += o.XX
	m.YY += o.YY
	m.XY += o.XY
	m.XXY += o.XXY
	m.XYY += o.XYY
	m.XXX += o.XXX
	m.YYY += o.YYY
}

// Area returns pixel count
func (m RawMoments) Area() float64 {
	return m.N
}

// Centroid returns mean position. Empty set gives (0, 0)
func (m RawMoments) Centroid() (float64, float64) {
	if m.N == 0 {
		return 0, 0
	}
	return m.X / m.N, m.Y / m.N
}

// Central2 returns normalized second central moments (variances and covariance).
// Rounding error never makes a variance negative.
func (m RawMoments) Central2() (mu20, mu02, mu11 float64) {
	if m.N == 0 {
		return 0, 0, 0
	}
	cx, cy := m.Centroid()
	mu20 = m.XX/m.N - cx*cx
	mu02 = m.YY/m.N - cy*cy
	mu11 = m.XY/m.N - cx*cy
	mu20 = math.Max(mu20, 0)
	mu02 = math.Max(mu02, 0)
	return mu20, mu02, mu11
}

// Central3 returns third central moments as sums over the pixel set (not normalized)
func (m RawMoments) Central3() (mu30, mu21, mu12, mu03 float64) {
	if m.N == 0 {
		return 0, 0, 0, 0
	}
	a, b := m.Centroid()
	mu30 = m.XXX - 3*a*m.XX + 3*a*a*m.X - m.N*a*a*a
	mu03 = m.YYY - 3*b*m.YY + 3*b*b*m.Y - m.N*b*b*b
	mu21 = m.XXY - b*m.XX - 2*a*m.XY + 2*a*b*m.X + a*a*m.Y - m.N*a*a*b
	mu12 = m.XYY - a*m.YY - 2*b*m.XY + 2*a*b*m.Y + b*b*m.X - m.N*a*b*b
	return mu30, mu21, mu12, mu03
}
