package blobtrack

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleRawBlob(t *testing.T, mask *Frame) *RawBlob {
	t.Helper()
	blobs := ExtractRawBlobs(mask, mask.Bounds())
	require.Len(t, blobs, 1)
	return blobs[0]
}

// axisDistance is angular distance between two undirected axes, in [0, 90]
func axisDistance(a, b float64) float64 {
	d := angularDistance(a, b)
	if d > 90 {
		d = 180 - d
	}
	return d
}

func TestEstimateShapeDisk(t *testing.T) {
	mask := NewGrayFrame(100, 100)
	drawDisk(mask, 50, 50, 10, 255)
	rb := singleRawBlob(t, mask)

	for _, b := range []Blob{EstimateShape(rb.Pixels, rb.Moments), EstimateShapeSkewness(rb.Moments)} {
		assert.InDelta(t, 50, b.X, 1e-9)
		assert.InDelta(t, 50, b.Y, 1e-9)
		assert.Equal(t, float64(rb.Area()), b.Area)
		assert.InDelta(t, 10, b.MajorAxis, 0.5)
		assert.InDelta(t, 10, b.MinorAxis, 0.5)
	}
}

func TestEstimateShapeEllipse(t *testing.T) {
	mask := NewGrayFrame(100, 100)
	drawEllipse(mask, 50, 50, 20, 8, 0, 255)
	rb := singleRawBlob(t, mask)
	b := EstimateShape(rb.Pixels, rb.Moments)
	assert.InDelta(t, 20, b.MajorAxis, 1)
	assert.InDelta(t, 8, b.MinorAxis, 1)
	assert.Less(t, axisDistance(b.Orientation, 0), 1.0)

	// 45 degrees clockwise in image coordinates is -45 on screen
	mask = NewGrayFrame(100, 100)
	drawEllipse(mask, 50, 50, 20, 8, 45, 255)
	rb = singleRawBlob(t, mask)
	b = EstimateShape(rb.Pixels, rb.Moments)
	assert.Less(t, axisDistance(b.Orientation, -45), 1.0)
	b = EstimateShapeSkewness(rb.Moments)
	assert.Less(t, axisDistance(b.Orientation, -45), 1.0)
}

func TestEstimateShapeHeadTail(t *testing.T) {
	cases := []struct {
		name string
		head Point
		tail image.Rectangle
		want float64
	}{
		{"head left", NewPoint(40, 50), image.Rect(48, 49, 80, 52), 180},
		{"head up", NewPoint(50, 30), image.Rect(49, 38, 52, 70), 90},
		{"head down", NewPoint(50, 70), image.Rect(49, 30, 52, 62), -90},
		{"head right", NewPoint(70, 50), image.Rect(30, 49, 62, 52), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mask := NewGrayFrame(100, 100)
			drawDisk(mask, c.head.X, c.head.Y, 8, 255)
			drawRect(mask, c.tail, 255)
			rb := singleRawBlob(t, mask)

			b := EstimateShape(rb.Pixels, rb.Moments)
			assert.Less(t, angularDistance(b.Orientation, c.want), 10.0, "head fraction orientation %v", b.Orientation)
			b = EstimateShapeSkewness(rb.Moments)
			assert.Less(t, angularDistance(b.Orientation, c.want), 10.0, "skewness orientation %v", b.Orientation)
		})
	}
}

func TestEstimateShapeOrientationRange(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(60)
		pts := make([]image.Point, n)
		for i := range pts {
			pts[i] = image.Pt(rng.Intn(15), rng.Intn(15))
		}
		rb := RawBlobFromPoints(pts)
		for _, b := range []Blob{EstimateShape(rb.Pixels, rb.Moments), EstimateShapeSkewness(rb.Moments)} {
			require.False(t, math.IsNaN(b.Orientation))
			require.Greater(t, b.Orientation, -180.0)
			require.LessOrEqual(t, b.Orientation, 180.0)
			require.False(t, math.IsNaN(b.MajorAxis))
			require.False(t, math.IsNaN(b.MinorAxis))
			require.GreaterOrEqual(t, b.MajorAxis, b.MinorAxis)
		}
	}
}

func TestEstimateShapeSinglePixel(t *testing.T) {
	rb := RawBlobFromPoints([]image.Point{{X: 7, Y: 3}})
	b := EstimateShape(rb.Pixels, rb.Moments)
	assert.Equal(t, 7.0, b.X)
	assert.Equal(t, 3.0, b.Y)
	assert.Equal(t, 1.0, b.Area)
	assert.Equal(t, 0.0, b.MajorAxis)
	assert.Equal(t, 0.0, b.MinorAxis)
	assert.Greater(t, b.Orientation, -180.0)

	var empty RawMoments
	mu20, mu02, mu11 := empty.Central2()
	assert.Equal(t, [3]float64{0, 0, 0}, [3]float64{mu20, mu02, mu11})
}

func TestEstimateShapeThinLine(t *testing.T) {
	pts := make([]image.Point, 0, 9)
	for x := 10; x < 19; x++ {
		pts = append(pts, image.Pt(x, 4))
	}
	rb := RawBlobFromPoints(pts)
	b := EstimateShape(rb.Pixels, rb.Moments)
	assert.Equal(t, 14.0, b.X)
	assert.Equal(t, 4.0, b.Y)
	assert.Equal(t, 0.0, b.MinorAxis)
	assert.Greater(t, b.MajorAxis, 0.0)
	assert.Less(t, axisDistance(b.Orientation, 0), 1e-9)
}

func TestBlobFromComponent(t *testing.T) {
	c := NewComponent(10, 20, 1, 0, 4)
	b := blobFromComponent(c)
	assert.Equal(t, 10.0, b.X)
	assert.Equal(t, 20.0, b.Y)
	assert.Equal(t, 0.0, b.Area)
	assert.InDelta(t, 2*axisFromVariance, b.MajorAxis, 1e-9)
	assert.InDelta(t, axisFromVariance, b.MinorAxis, 1e-9)
	assert.Less(t, axisDistance(b.Orientation, 90), 1e-6)
}

func TestRawMomentsCentral(t *testing.T) {
	var m RawMoments
	pts := []image.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 4, Y: 1}, {X: 1, Y: 3}}
	for _, p := range pts {
		m.Accumulate(float64(p.X), float64(p.Y))
	}
	cx, cy := m.Centroid()
	var mu20, mu02, mu11, mu30, mu21, mu12, mu03 float64
	for _, p := range pts {
		dx := float64(p.X) - cx
		dy := float64(p.Y) - cy
		mu20 += dx * dx
		mu02 += dy * dy
		mu11 += dx * dy
		mu30 += dx * dx * dx
		mu21 += dx * dx * dy
		mu12 += dx * dy * dy
		mu03 += dy * dy * dy
	}
	n := float64(len(pts))
	g20, g02, g11 := m.Central2()
	assert.InDelta(t, mu20/n, g20, 1e-9)
	assert.InDelta(t, mu02/n, g02, 1e-9)
	assert.InDelta(t, mu11/n, g11, 1e-9)
	g30, g21, g12, g03 := m.Central3()
	assert.InDelta(t, mu30, g30, 1e-9)
	assert.InDelta(t, mu21, g21, 1e-9)
	assert.InDelta(t, mu12, g12, 1e-9)
	assert.InDelta(t, mu03, g03, 1e-9)

	var merged RawMoments
	var other RawMoments
	merged.Accumulate(0, 0)
	merged.Accumulate(2, 0)
	other.Accumulate(4, 1)
	other.Accumulate(1, 3)
	merged.Merge(other)
	assert.Equal(t, m, merged)
}
