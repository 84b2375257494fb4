package blobtrack

import (
	"image"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Covariance guards
const (
	minComponentVariance      = 1e-2
	fallbackComponentVariance = 0.5
	minComponentWeight        = 1e-9
)

// Component is a bivariate Gaussian of a mixture
type Component struct {
	Mean [2]float64
	Cov  *mat.SymDense
}

// NewComponent creates component with mean (mx, my) and covariance [[c00, c01], [c01, c11]]
func NewComponent(mx, my, c00, c01, c11 float64) Component {
	return Component{
		Mean: [2]float64{mx, my},
		Cov:  mat.NewSymDense(2, []float64{c00, c01, c01, c11}),
	}
}

// Principal returns direction of the major eigenvector in degrees, in [0, 180),
// and the major and minor eigenvalues of the covariance.
func (c Component) Principal() (angle, major, minor float64) {
	var eig mat.EigenSym
	if !eig.Factorize(c.Cov, true) {
		return 0, c.Cov.At(0, 0), c.Cov.At(1, 1)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	// Eigenvalues are in ascending order
	angle = rad2deg(math.Atan2(vectors.At(1, 1), vectors.At(0, 1)))
	for angle < 0 {
		angle += 180
	}
	for angle >= 180 {
		angle -= 180
	}
	return angle, values[1], values[0]
}

// ComponentSet is a set of component indexes
type ComponentSet []uint64

// Add inserts component index
func (s *ComponentSet) Add(i int) {
	word := i / 64
	for len(*s) <= word {
		*s = append(*s, 0)
	}
	(*s)[word] |= 1 << uint(i%64)
}

// Has reports whether component index is in the set
func (s ComponentSet) Has(i int) bool {
	word := i / 64
	if i < 0 || word >= len(s) {
		return false
	}
	return s[word]&(1<<uint(i%64)) != 0
}

// Len returns number of components in the set
func (s ComponentSet) Len() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// Members returns component indexes in ascending order
func (s ComponentSet) Members() []int {
	members := make([]int, 0, s.Len())
	for wi, w := range s {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			members = append(members, wi*64+b)
			w &= w - 1
		}
	}
	return members
}

// Allocation tells which components a pixel belongs to
type Allocation struct {
	// Component with the highest posterior
	Primary int
	// Primary plus, when overlap sharing is on, every component with high enough density
	Members ComponentSet
}

// FitResult is outcome of Mixture.Fit
type FitResult struct {
	// One allocation per input point, same order
	Allocations []Allocation
	Iterations  int
	Converged   bool
}

// Mixture is a set of equally weighted bivariate Gaussians fitted with EM
type Mixture struct {
	Components []Component
	// EM stops after MaxIterations or when no mean moves more than Tolerance pixels
	// and no principal axis turns more than Tolerance degrees.
	MaxIterations int
	Tolerance     float64
	// Density above which a pixel is shared with a non-primary component. Zero gives hard allocation
	OverlapDensity float64
}

// NewMixture creates mixture without components
func NewMixture(maxIterations int, tolerance float64) *Mixture {
	if maxIterations <= 0 {
		maxIterations = DefaultEMMaxIterations
	}
	if tolerance <= 0 {
		tolerance = DefaultEMTolerance
	}
	return &Mixture{
		MaxIterations: maxIterations,
		Tolerance:     tolerance,
	}
}

// NewUniformMixture creates k components spread evenly along the longer side of bbox
func NewUniformMixture(k int, bbox image.Rectangle, maxIterations int, tolerance float64) *Mixture {
	m := NewMixture(maxIterations, tolerance)
	m.Components = append(m.Components, uniformComponents(k, bbox)...)
	return m
}

// AddComponent appends component. Covariance is copied
func (m *Mixture) AddComponent(mean [2]float64, cov mat.Symmetric) {
	c := NewComponent(mean[0], mean[1], cov.At(0, 0), cov.At(0, 1), cov.At(1, 1))
	m.Components = append(m.Components, c)
}

// K returns number of components
func (m *Mixture) K() int {
	return len(m.Components)
}

// uniformComponents places k means on the line through the bbox center along its
// longer side, at (i+1)/(k+1) of its length.
func uniformComponents(k int, bbox image.Rectangle) []Component {
	if k <= 0 {
		return nil
	}
	w := float64(bbox.Dx())
	h := float64(bbox.Dy())
	x0 := float64(bbox.Min.X)
	y0 := float64(bbox.Min.Y)
	comps := make([]Component, 0, k)
	for i := 0; i < k; i++ {
		frac := float64(i+1) / float64(k+1)
		if w >= h {
			mx := x0 + (w-1)*frac
			my := y0 + (h-1)/2
			spread := w / (2 * float64(k))
			comps = append(comps, NewComponent(mx, my, spread*spread, 0, (h/2)*(h/2)))
		} else {
			mx := x0 + (w-1)/2
			my := y0 + (h-1)*frac
			spread := h / (2 * float64(k))
			comps = append(comps, NewComponent(mx, my, (w/2)*(w/2), 0, spread*spread))
		}
	}
	return comps
}

// Fit runs EM on the points and allocates every point to components
func (m *Mixture) Fit(points []image.Point) FitResult {
	k := len(m.Components)
	n := len(points)
	result := FitResult{
		Allocations: make([]Allocation, n),
	}
	if k == 0 || n == 0 {
		return result
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i] = float64(p.X)
		ys[i] = float64(p.Y)
	}
	// responsibilities[j][i] is posterior of component j for point i
	responsibilities := make([][]float64, k)
	for j := range responsibilities {
		responsibilities[j] = make([]float64, n)
	}
	densities := make([]float64, k)

	for iter := 0; iter < m.MaxIterations; iter++ {
		normals := m.normals()
		// E-step
		for i := 0; i < n; i++ {
			evaluateDensities(normals, xs[i], ys[i], densities)
			total := floats.Sum(densities)
			if total == 0 {
				total = 1
			}
			for j := 0; j < k; j++ {
				responsibilities[j][i] = densities[j] / total
			}
		}
		// M-step
		change := 0.0
		for j := 0; j < k; j++ {
			next, ok := maximizeComponent(xs, ys, responsibilities[j])
			if !ok {
				continue
			}
			prev := m.Components[j]
			prevAngle, _, _ := prev.Principal()
			nextAngle, _, _ := next.Principal()
			change = maxFloat64(change, math.Abs(next.Mean[0]-prev.Mean[0]))
			change = maxFloat64(change, math.Abs(next.Mean[1]-prev.Mean[1]))
			change = maxFloat64(change, axisAngleDifference(prevAngle, nextAngle))
			m.Components[j] = next
		}
		result.Iterations = iter + 1
		if change <= m.Tolerance {
			result.Converged = true
			break
		}
	}
	if !result.Converged {
		Logf("blobtrack: EM stopped after %d iterations without converging (k=%d, %d pixels)", result.Iterations, k, n)
	}

	normals := m.normals()
	for i := 0; i < n; i++ {
		evaluateDensities(normals, xs[i], ys[i], densities)
		primary := floats.MaxIdx(densities)
		if densities[primary] == 0 {
			primary = m.nearestComponent(xs[i], ys[i])
		}
		alloc := Allocation{Primary: primary}
		alloc.Members.Add(primary)
		if m.OverlapDensity > 0 {
			for j, d := range densities {
				if d > m.OverlapDensity {
					alloc.Members.Add(j)
				}
			}
		}
		result.Allocations[i] = alloc
	}
	return result
}

func (m *Mixture) normals() []*distmv.Normal {
	normals := make([]*distmv.Normal, len(m.Components))
	for j, c := range m.Components {
		mu := []float64{c.Mean[0], c.Mean[1]}
		normal, ok := distmv.NewNormal(mu, c.Cov, nil)
		if !ok {
			c00, c01, c11 := guardCovariance(c.Cov.At(0, 0), c.Cov.At(0, 1), c.Cov.At(1, 1))
			m.Components[j] = NewComponent(c.Mean[0], c.Mean[1], c00, c01, c11)
			normal, ok = distmv.NewNormal(mu, m.Components[j].Cov, nil)
			if !ok {
				m.Components[j] = NewComponent(c.Mean[0], c.Mean[1], 1, 0, 1)
				normal, _ = distmv.NewNormal(mu, m.Components[j].Cov, nil)
			}
		}
		normals[j] = normal
	}
	return normals
}

func (m *Mixture) nearestComponent(x, y float64) int {
	best := 0
	bestDist := math.Inf(1)
	for j, c := range m.Components {
		d := squaredDistance(NewPoint(x, y), NewPoint(c.Mean[0], c.Mean[1]))
		if d < bestDist {
			bestDist = d
			best = j
		}
	}
	return best
}

func evaluateDensities(normals []*distmv.Normal, x, y float64, dst []float64) {
	pt := []float64{x, y}
	for j, normal := range normals {
		d := normal.Prob(pt)
		if math.IsNaN(d) || d < 0 {
			d = 0
		}
		dst[j] = d
	}
}

// maximizeComponent returns component fitted to points with given weights.
// Returns false when weights carry no mass.
func maximizeComponent(xs, ys, weights []float64) (Component, bool) {
	sw := floats.Sum(weights)
	if sw <= minComponentWeight || math.IsNaN(sw) {
		return Component{}, false
	}
	mx := stat.Mean(xs, weights)
	my := stat.Mean(ys, weights)
	var c00, c01, c11 float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		w := weights[i]
		c00 += w * dx * dx
		c01 += w * dx * dy
		c11 += w * dy * dy
	}
	c00 /= sw
	c01 /= sw
	c11 /= sw
	c00, c01, c11 = guardCovariance(c00, c01, c11)
	return NewComponent(mx, my, c00, c01, c11), true
}

// guardCovariance replaces tiny variances and inflates the diagonal until the determinant is positive
func guardCovariance(c00, c01, c11 float64) (float64, float64, float64) {
	if math.IsNaN(c00) || math.IsNaN(c01) || math.IsNaN(c11) {
		return 1, 0, 1
	}
	if c00 < minComponentVariance {
		c00 = fallbackComponentVariance
	}
	if c11 < minComponentVariance {
		c11 = fallbackComponentVariance
	}
	for c00*c11-c01*c01 <= 0 {
		c00 *= 2
		c01 *= 0.9
		c11 *= 2
	}
	return c00, c01, c11
}

// axisAngleDifference returns difference of two axis directions given in [0, 180), in [0, 90]
func axisAngleDifference(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 90 {
		d = 180 - d
	}
	return d
}
