package blobtrack

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Seeding constants: component standard deviation is axis length / axisFromVariance
// with axes floored at the given minimums.
const (
	axisFromVariance = 1.95
	minSeedMajorAxis = 8.0
	minSeedMinorAxis = 1.0
)

// ObjectState is the last known state of a tracked object used to seed the mixture
type ObjectState struct {
	X           float64
	Y           float64
	Orientation float64
	MajorAxis   float64
	MinorAxis   float64
}

// SeedMixture creates k components for raw blob. The k previously tracked objects
// closest to the bbox center (objects outside the bbox are penalised by its
// larger side) become seeds, closest first, each used once. Seed means are
// clamped into the bbox and covariances are rebuilt from axes and orientation.
// Missing seeds are spread uniformly over the bbox.
func SeedMixture(rb *RawBlob, k int, history []ObjectState, maxIterations int, tolerance float64) *Mixture {
	m := NewMixture(maxIterations, tolerance)
	if k <= 0 {
		return m
	}
	bbox := rb.BBox
	w := float64(bbox.Dx())
	h := float64(bbox.Dy())
	cx := float64(bbox.Min.X) + w/2 - 0.5
	cy := float64(bbox.Min.Y) + h/2 - 0.5
	penalty := math.Max(w, h)

	type candidate struct {
		index    int
		distance float64
	}
	candidates := make([]candidate, 0, len(history))
	for i, s := range history {
		if math.IsNaN(s.X) || math.IsNaN(s.Y) {
			continue
		}
		d := euclideanDistance(NewPoint(cx, cy), NewPoint(s.X, s.Y))
		if !pointInRect(s.X, s.Y, bbox) {
			d += penalty
		}
		candidates = append(candidates, candidate{index: i, distance: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	for i := 0; i < len(candidates) && i < k; i++ {
		s := history[candidates[i].index]
		mx := clampFloat64(s.X, float64(bbox.Min.X), float64(bbox.Max.X-1))
		my := clampFloat64(s.Y, float64(bbox.Min.Y), float64(bbox.Max.Y-1))
		c00, c01, c11 := covarianceFromAxes(s.MajorAxis, s.MinorAxis, s.Orientation)
		m.AddComponent([2]float64{mx, my}, mat.NewSymDense(2, []float64{c00, c01, c01, c11}))
	}
	if missing := k - len(m.Components); missing > 0 {
		m.Components = append(m.Components, uniformComponents(missing, bbox)...)
	}
	return m
}

// covarianceFromAxes builds covariance of an ellipse with given axes and orientation (degrees, screen convention)
func covarianceFromAxes(major, minor, orientation float64) (c00, c01, c11 float64) {
	if major < minSeedMajorAxis || math.IsNaN(major) {
		major = minSeedMajorAxis
	}
	if minor < minSeedMinorAxis || math.IsNaN(minor) {
		minor = minSeedMinorAxis
	}
	s1 := (major / axisFromVariance) * (major / axisFromVariance)
	s2 := (minor / axisFromVariance) * (minor / axisFromVariance)
	phi := deg2rad(orientation)
	cp := math.Cos(phi)
	sp := -math.Sin(phi)
	c00 = s1*cp*cp + s2*sp*sp
	c01 = sp * cp * (s1 - s2)
	c11 = s1*sp*sp + s2*cp*cp
	return c00, c01, c11
}

func pointInRect(x, y float64, r image.Rectangle) bool {
	return x >= float64(r.Min.X) && x <= float64(r.Max.X-1) && y >= float64(r.Min.Y) && y <= float64(r.Max.Y-1)
}

// SplitRawBlob fits the mixture to raw blob pixels and returns one pixel group per
// component (possibly empty). With hard allocation the groups partition the raw blob.
func SplitRawBlob(rb *RawBlob, m *Mixture) ([]*RawBlob, FitResult) {
	fit := m.Fit(rb.Pixels)
	groups := make([]*RawBlob, m.K())
	for j := range groups {
		groups[j] = newRawBlob(rb.Area()/maxInt(m.K(), 1) + 1)
	}
	for i, p := range rb.Pixels {
		alloc := fit.Allocations[i]
		for _, j := range alloc.Members.Members() {
			groups[j].AddPoint(p)
		}
	}
	return groups, fit
}
