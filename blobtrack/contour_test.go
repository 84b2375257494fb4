package blobtrack

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCenteredDisk(t *testing.T) {
	bg := newFilledFrame(100, 100, 200)
	frame := newFilledFrame(100, 100, 200)
	drawDisk(frame, 50, 50, 10, 50)

	d := NewDifferencer()
	require.NoError(t, d.SetBackground(bg))
	mask, err := d.Apply(frame, 30)
	require.NoError(t, err)

	blobs := ExtractRawBlobs(mask, mask.Bounds())
	require.Len(t, blobs, 1)
	expectedArea := math.Pi * 100
	assert.InDelta(t, expectedArea, float64(blobs[0].Area()), 0.1*expectedArea)
	c := blobs[0].Centroid()
	assert.InDelta(t, 50.0, c.X, 0.5)
	assert.InDelta(t, 50.0, c.Y, 0.5)
	assert.Equal(t, image.Rect(40, 40, 61, 61), blobs[0].BBox)
	assert.Greater(t, blobs[0].Perimeter, 40.0)
	assert.Less(t, blobs[0].Perimeter, 100.0)
}

func TestExtractPartitionRandomMasks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tracer := NewContourTracer()
	windows := []image.Rectangle{
		image.Rect(0, 0, 40, 30),
		image.Rect(5, 3, 33, 27),
		image.Rect(-10, -10, 17, 12),
	}
	for trial := 0; trial < 40; trial++ {
		mask := NewGrayFrame(40, 30)
		density := 0.2 + 0.5*rng.Float64()
		for i := range mask.Pix {
			if rng.Float64() < density {
				mask.Pix[i] = 255
			}
		}
		for _, window := range windows {
			blobs := tracer.Extract(mask, window)
			clipped := window.Intersect(mask.Bounds())

			total := 0
			for _, rb := range blobs {
				total += rb.Area()
				for _, p := range rb.Pixels {
					require.True(t, p.In(clipped), "pixel %v outside window %v", p, clipped)
				}
			}
			require.Equal(t, len(maskPoints(mask, clipped)), total, "trial %d window %v", trial, window)

			want := bfsComponents(mask, clipped)
			got := rawBlobComponents(blobs, mask.Width)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("trial %d window %v: components mismatch (-bfs +tracer):\n%s", trial, window, diff)
			}
		}
	}
}

func TestExtractRingExcludesHole(t *testing.T) {
	mask := NewGrayFrame(60, 60)
	drawDisk(mask, 30, 30, 12, 255)
	drawDisk(mask, 30, 30, 5, 0)

	blobs := ExtractRawBlobs(mask, mask.Bounds())
	require.Len(t, blobs, 1)
	assert.Equal(t, len(maskPoints(mask, mask.Bounds())), blobs[0].Area())
	for _, p := range blobs[0].Pixels {
		dx := float64(p.X - 30)
		dy := float64(p.Y - 30)
		require.Greater(t, dx*dx+dy*dy, 25.0)
	}
}

func TestExtractIsolatedPixelAndLine(t *testing.T) {
	mask := NewGrayFrame(10, 10)
	mask.Set(2, 2, 255)
	for x := 3; x < 8; x++ {
		mask.Set(x, 6, 255)
	}
	blobs := ExtractRawBlobs(mask, mask.Bounds())
	require.Len(t, blobs, 2)

	assert.Equal(t, 1, blobs[0].Area())
	assert.Equal(t, 1.0, blobs[0].Perimeter)
	assert.Equal(t, image.Rect(2, 2, 3, 3), blobs[0].BBox)

	assert.Equal(t, 5, blobs[1].Area())
	assert.Equal(t, 8.0, blobs[1].Perimeter)
}

func TestExtractWindowClipsBlob(t *testing.T) {
	mask := NewGrayFrame(40, 40)
	drawRect(mask, image.Rect(10, 10, 30, 20), 255)

	blobs := ExtractRawBlobs(mask, image.Rect(20, 0, 40, 40))
	require.Len(t, blobs, 1)
	assert.Equal(t, 100, blobs[0].Area())
	assert.Equal(t, image.Rect(20, 10, 30, 20), blobs[0].BBox)

	assert.Empty(t, ExtractRawBlobs(mask, image.Rect(0, 25, 40, 40)))
	assert.Empty(t, ExtractRawBlobs(mask, image.Rect(50, 50, 60, 60)))
}

func TestExtractDiagonalConnectivity(t *testing.T) {
	mask := NewGrayFrame(6, 6)
	mask.Set(1, 1, 255)
	mask.Set(2, 2, 255)
	mask.Set(3, 3, 255)
	mask.Set(3, 1, 255)
	blobs := ExtractRawBlobs(mask, mask.Bounds())
	require.Len(t, blobs, 1)
	assert.Equal(t, 4, blobs[0].Area())
}

func TestFilterRawBlobs(t *testing.T) {
	small := RawBlobFromPoints([]image.Point{{X: 0, Y: 0}})
	small.Perimeter = 1
	medium := RawBlobFromPoints(make([]image.Point, 20))
	medium.Perimeter = 16
	large := RawBlobFromPoints(make([]image.Point, 500))
	large.Perimeter = 90
	blobs := []*RawBlob{small, medium, large}

	assert.Equal(t, []*RawBlob{medium}, FilterRawBlobs(blobs, 5, 100, 0, 0))
	assert.Equal(t, []*RawBlob{medium, large}, FilterRawBlobs(blobs, 5, 0, 0, 0))
	assert.Equal(t, []*RawBlob{large}, FilterRawBlobs(blobs, 0, 0, 20, 0))
	assert.Equal(t, []*RawBlob{small, medium}, FilterRawBlobs(blobs, 0, 0, 0, 50))
}
