package blobtrack

import "image"

// Label values besides positive blob labels
const (
	labelNone   = 0
	labelMarked = -1 // background pixel already visited by a contour trace
)

// Neighbour offsets, clockwise, starting to the right. Y grows down
var contourDirections = [8]image.Point{
	{X: 1, Y: 0},
	{X: 1, Y: 1},
	{X: 0, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: 0},
	{X: -1, Y: -1},
	{X: 0, Y: -1},
	{X: 1, Y: -1},
}

const (
	externalStartDirection = 7
	internalStartDirection = 3
)

// ContourTracer extracts 8-connected raw blobs from a binary mask with the
// contour tracing labeling of Chang, Chen and Lu: every outer contour is traced
// when the raster scan first meets it, every hole contour when the scan meets a
// pixel right above an unvisited hole pixel, and remaining pixels take the label
// of their left neighbour.
//
// Label storage is reused between calls, so a tracer must not be shared between goroutines.
type ContourTracer struct {
	labels []int
	mask   *Frame
	window image.Rectangle
	width  int
	height int
	blobs  []*RawBlob
}

// NewContourTracer creates tracer with empty label storage
func NewContourTracer() *ContourTracer {
	return &ContourTracer{}
}

// ExtractRawBlobs is a shortcut for NewContourTracer().Extract(mask, window)
func ExtractRawBlobs(mask *Frame, window image.Rectangle) []*RawBlob {
	return NewContourTracer().Extract(mask, window)
}

// Extract returns raw blobs of non-zero mask pixels inside window (clipped to mask bounds).
// Pixel coordinates are absolute frame coordinates. Pixels outside window are background.
// Blobs are ordered by the raster position of their first pixel.
func (ct *ContourTracer) Extract(mask *Frame, window image.Rectangle) []*RawBlob {
	window = window.Intersect(mask.Bounds())
	ct.blobs = nil
	if window.Empty() {
		return nil
	}
	ct.mask = mask
	ct.window = window
	ct.width = window.Dx()
	ct.height = window.Dy()
	n := ct.width * ct.height
	if cap(ct.labels) < n {
		ct.labels = make([]int, n)
	} else {
		ct.labels = ct.labels[:n]
		clear(ct.labels)
	}

	for ly := 0; ly < ct.height; ly++ {
		for lx := 0; lx < ct.width; lx++ {
			if !ct.foreground(lx, ly) {
				continue
			}
			idx := ly*ct.width + lx
			// Outer contour
			if ct.labels[idx] == labelNone && !ct.foreground(lx, ly-1) {
				ct.startBlob(lx, ly)
			}
			// Hole contour
			if ct.unmarkedBackground(lx, ly+1) {
				if ct.labels[idx] == labelNone {
					ct.inheritLeft(lx, ly)
				}
				ct.trace(lx, ly, ct.labels[idx], internalStartDirection)
			}
			// Interior pixel
			if ct.labels[idx] == labelNone {
				ct.inheritLeft(lx, ly)
			}
			ct.blobs[ct.labels[idx]-1].AddPoint(image.Pt(ct.window.Min.X+lx, ct.window.Min.Y+ly))
		}
	}
	ct.mask = nil
	return ct.blobs
}

// startBlob assigns a fresh label to (lx, ly) and traces its outer contour
func (ct *ContourTracer) startBlob(lx, ly int) {
	ct.blobs = append(ct.blobs, newRawBlob(64))
	label := len(ct.blobs)
	ct.labels[ly*ct.width+lx] = label
	ct.blobs[label-1].Perimeter = ct.trace(lx, ly, label, externalStartDirection)
}

// inheritLeft copies label of the left neighbour. A pixel without labeled left
// neighbour starts a new blob.
func (ct *ContourTracer) inheritLeft(lx, ly int) {
	if lx > 0 {
		if left := ct.labels[ly*ct.width+lx-1]; left > labelNone {
			ct.labels[ly*ct.width+lx] = left
			return
		}
	}
	ct.startBlob(lx, ly)
}

// trace follows contour from (sx, sy) labeling its pixels. Returns number of unit
// steps along the contour; an isolated pixel has length 1.
func (ct *ContourTracer) trace(sx, sy, label, startDirection int) float64 {
	start := image.Pt(sx, sy)
	second, dir, ok := ct.nextContourPoint(start, startDirection)
	if !ok {
		return 1
	}
	ct.labels[second.Y*ct.width+second.X] = label
	length := 1.0
	current := second
	maxSteps := 4*ct.width*ct.height + 8
	for step := 0; step < maxSteps; step++ {
		// Search starts two positions clockwise from the previous point
		next, nextDir, _ := ct.nextContourPoint(current, (dir+6)%8)
		if current == start && next == second {
			break
		}
		ct.labels[next.Y*ct.width+next.X] = label
		current = next
		dir = nextDir
		length++
	}
	return length
}

// nextContourPoint searches neighbours of p clockwise from startDirection and returns
// the first foreground one with direction it was found at. Background neighbours
// visited on the way are marked.
func (ct *ContourTracer) nextContourPoint(p image.Point, startDirection int) (image.Point, int, bool) {
	for i := 0; i < 8; i++ {
		d := (startDirection + i) % 8
		q := p.Add(contourDirections[d])
		if !ct.inside(q.X, q.Y) {
			continue
		}
		if ct.foreground(q.X, q.Y) {
			return q, d, true
		}
		ct.labels[q.Y*ct.width+q.X] = labelMarked
	}
	return p, startDirection, false
}

func (ct *ContourTracer) inside(lx, ly int) bool {
	return lx >= 0 && ly >= 0 && lx < ct.width && ly < ct.height
}

func (ct *ContourTracer) foreground(lx, ly int) bool {
	if !ct.inside(lx, ly) {
		return false
	}
	x := ct.window.Min.X + lx
	y := ct.window.Min.Y + ly
	return ct.mask.Pix[y*ct.mask.Stride+x*ct.mask.Channels] != 0
}

// unmarkedBackground reports background pixel not yet visited by any trace.
// Pixels outside window count as visited so that no hole contour starts at the border.
func (ct *ContourTracer) unmarkedBackground(lx, ly int) bool {
	if !ct.inside(lx, ly) {
		return false
	}
	return !ct.foreground(lx, ly) && ct.labels[ly*ct.width+lx] == labelNone
}
