package blobtrack

import "image"

// RawBlob is one 8-connected foreground region before it is known how many
// objects it contains.
type RawBlob struct {
	Pixels    []image.Point
	Moments   RawMoments
	Perimeter float64
	// Bounding box, Max is exclusive
	BBox image.Rectangle
}

func newRawBlob(capacity int) *RawBlob {
	return &RawBlob{
		Pixels: make([]image.Point, 0, capacity),
	}
}

// RawBlobFromPoints builds raw blob from a pixel list. Perimeter is left zero
func RawBlobFromPoints(points []image.Point) *RawBlob {
	rb := newRawBlob(len(points))
	for _, p := range points {
		rb.AddPoint(p)
	}
	return rb
}

// AddPoint adds pixel to the blob
func (rb *RawBlob) AddPoint(p image.Point) {
	if len(rb.Pixels) == 0 {
		rb.BBox = image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))}
	} else {
		if p.X < rb.BBox.Min.X {
			rb.BBox.Min.X = p.X
		}
		if p.Y < rb.BBox.Min.Y {
			rb.BBox.Min.Y = p.Y
		}
		if p.X >= rb.BBox.Max.X {
			rb.BBox.Max.X = p.X + 1
		}
		if p.Y >= rb.BBox.Max.Y {
			rb.BBox.Max.Y = p.Y + 1
		}
	}
	rb.Pixels = append(rb.Pixels, p)
	rb.Moments.Accumulate(float64(p.X), float64(p.Y))
}

// Area returns pixel count
func (rb *RawBlob) Area() int {
	return len(rb.Pixels)
}

// Centroid returns mean pixel position
func (rb *RawBlob) Centroid() Point {
	x, y := rb.Moments.Centroid()
	return NewPoint(x, y)
}

// FilterRawBlobs keeps raw blobs with area in [areaLow, areaHigh] and perimeter in
// [perimLow, perimHigh]. Zero upper bounds are unbounded.
func FilterRawBlobs(blobs []*RawBlob, areaLow, areaHigh, perimLow, perimHigh int) []*RawBlob {
	filtered := make([]*RawBlob, 0, len(blobs))
	for _, rb := range blobs {
		area := rb.Area()
		if area < areaLow || (areaHigh > 0 && area > areaHigh) {
			continue
		}
		if rb.Perimeter < float64(perimLow) || (perimHigh > 0 && rb.Perimeter > float64(perimHigh)) {
			continue
		}
		filtered = append(filtered, rb)
	}
	return filtered
}
