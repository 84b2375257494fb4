package blobtrack

import (
	"image"
	"math"
)

// Blob is the final estimate of a single object
type Blob struct {
	X         float64
	Y         float64
	Area      float64
	MajorAxis float64
	MinorAxis float64
	// Degrees in (-180, 180]. Positive is counter-clockwise on screen
	Orientation float64
}

// Center returns blob centroid
func (b Blob) Center() Point {
	return NewPoint(b.X, b.Y)
}

// State returns blob as a tracked object state
func (b Blob) State() ObjectState {
	return ObjectState{
		X:           b.X,
		Y:           b.Y,
		Orientation: b.Orientation,
		MajorAxis:   b.MajorAxis,
		MinorAxis:   b.MinorAxis,
	}
}

// ellipse holds moment based ellipse of a pixel set. Theta is in image
// coordinates (y down), degrees in (-90, 90].
type ellipse struct {
	cx    float64
	cy    float64
	major float64
	minor float64
	theta float64
}

// ellipseFromMoments returns centroid, semi-axes and axis direction of the
// equivalent ellipse. Axes come from the moments summed over the pixel set, so
// a disk of radius r has both axes equal to r.
func ellipseFromMoments(m RawMoments) ellipse {
	cx, cy := m.Centroid()
	mu20, mu02, mu11 := m.Central2()
	mu20 *= m.N
	mu02 *= m.N
	mu11 *= m.N
	delta := math.Sqrt(4*mu11*mu11 + (mu20-mu02)*(mu20-mu02))
	a := math.Pow(16*math.Pi*math.Pi*math.Max(mu20*mu02-mu11*mu11, 0), 0.25)
	if a == 0 {
		a = 1
	}
	major := math.Sqrt(math.Max(2*(mu20+mu02+delta)/a, 0))
	minor := math.Sqrt(math.Max(2*(mu20+mu02-delta)/a, 0))
	theta := rad2deg(0.5 * math.Atan2(2*mu11, mu20-mu02))
	return ellipse{
		cx:    cx,
		cy:    cy,
		major: major,
		minor: minor,
		theta: theta,
	}
}

// EstimateShape computes blob from pixel set and its moments. Head is the end of
// the major axis with at least half of the pixels on its side of the centroid.
func EstimateShape(pixels []image.Point, m RawMoments) Blob {
	e := ellipseFromMoments(m)
	theta := e.theta
	if len(pixels) > 0 {
		c := math.Cos(deg2rad(theta))
		s := math.Sin(deg2rad(theta))
		ahead := 0
		for _, p := range pixels {
			if (float64(p.X)-e.cx)*c+(float64(p.Y)-e.cy)*s > 0 {
				ahead++
			}
		}
		if float64(ahead)/float64(len(pixels)) < 0.5 {
			theta -= 180
			if theta < -180 {
				theta += 360
			}
		}
	}
	return Blob{
		X:           e.cx,
		Y:           e.cy,
		Area:        m.Area(),
		MajorAxis:   e.major,
		MinorAxis:   e.minor,
		Orientation: normalizeDegrees(-theta),
	}
}

// EstimateShapeSkewness computes blob from moments only. Head is the end of the
// major axis opposite to the third moment skew of the pixel distribution.
func EstimateShapeSkewness(m RawMoments) Blob {
	e := ellipseFromMoments(m)
	orientation := 180 - e.theta
	qx := math.Cos(deg2rad(orientation))
	qy := -math.Sin(deg2rad(orientation))
	mu30, mu21, mu12, mu03 := m.Central3()
	skew := mu30*qx*qx*qx + 3*mu21*qx*qx*qy + 3*mu12*qx*qy*qy + mu03*qy*qy*qy
	if skew > 0 {
		orientation += 180
	}
	return Blob{
		X:           e.cx,
		Y:           e.cy,
		Area:        m.Area(),
		MajorAxis:   e.major,
		MinorAxis:   e.minor,
		Orientation: normalizeDegrees(orientation),
	}
}

// blobFromComponent describes a mixture component which received no pixels
func blobFromComponent(c Component) Blob {
	angle, major, minor := c.Principal()
	return Blob{
		X:           c.Mean[0],
		Y:           c.Mean[1],
		Area:        0,
		MajorAxis:   axisFromVariance * math.Sqrt(math.Max(major, 0)),
		MinorAxis:   axisFromVariance * math.Sqrt(math.Max(minor, 0)),
		Orientation: normalizeDegrees(-angle),
	}
}
