package blobtrack

import "math"

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func rad2deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// normalizeDegrees folds an angle into (-180, 180]
func normalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360.0)
	if deg <= -180.0 {
		deg += 360.0
	} else if deg > 180.0 {
		deg -= 360.0
	}
	return deg
}

// angularDistance returns the absolute difference of two angles in degrees, in [0, 180]
func angularDistance(a, b float64) float64 {
	d := math.Abs(normalizeDegrees(a - b))
	return d
}
