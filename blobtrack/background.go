package blobtrack

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// BackgroundBuilder averages a sequence of frames into a gray background frame
type BackgroundBuilder struct {
	width  int
	height int
	sums   []float64
	row    []float64
	gray   *Frame
	count  int
}

// NewBackgroundBuilder creates empty builder. Size is taken from the first frame
func NewBackgroundBuilder() *BackgroundBuilder {
	return &BackgroundBuilder{}
}

// Add accumulates frame. BGR frames are converted to gray first
func (bb *BackgroundBuilder) Add(frame *Frame) error {
	if frame == nil {
		return ErrNilFrame
	}
	if frame.Channels != 1 && frame.Channels != 3 {
		return errors.Wrapf(ErrBadChannels, "frame has %d channels, expected 1 or 3", frame.Channels)
	}
	if bb.count == 0 {
		bb.width = frame.Width
		bb.height = frame.Height
		bb.sums = make([]float64, frame.Width*frame.Height)
		bb.row = make([]float64, frame.Width)
		bb.gray = nil
	} else if frame.Width != bb.width || frame.Height != bb.height {
		return errors.Wrapf(ErrSizeMismatch, "frame is %dx%d, background is %dx%d", frame.Width, frame.Height, bb.width, bb.height)
	}
	gray := frame
	if frame.Channels == 3 {
		if bb.gray == nil {
			bb.gray = NewGrayFrame(bb.width, bb.height)
		}
		convertToGray(bb.gray, frame)
		gray = bb.gray
	}
	for y := 0; y < bb.height; y++ {
		src := gray.Pix[y*gray.Stride:]
		for x := 0; x < bb.width; x++ {
			bb.row[x] = float64(src[x])
		}
		floats.Add(bb.sums[y*bb.width:(y+1)*bb.width], bb.row)
	}
	bb.count++
	return nil
}

// Count returns number of accumulated frames
func (bb *BackgroundBuilder) Count() int {
	return bb.count
}

// Finish returns the per-pixel average of accumulated frames rounded to nearest
func (bb *BackgroundBuilder) Finish() (*Frame, error) {
	if bb.count == 0 {
		return nil, errors.New("no frames accumulated for background")
	}
	avg := make([]float64, len(bb.sums))
	floats.ScaleTo(avg, 1.0/float64(bb.count), bb.sums)
	bg := NewGrayFrame(bb.width, bb.height)
	for i, v := range avg {
		bg.Pix[i] = uint8(clampFloat64(math.Round(v), 0, 255))
	}
	return bg, nil
}
