package blobtrack

import (
	"github.com/pkg/errors"
)

// Differencer turns a frame into a binary foreground mask by sign-aware
// background subtraction: a pixel is foreground when it is darker than the
// background by at least the threshold and the ROI mask (if any) allows it.
//
// Not safe for concurrent use: scratch buffers are overwritten on every call.
type Differencer struct {
	background *Frame
	roi        *Frame
	scratch    scratchPool
	// causes already logged, so repeated configuration errors are reported once
	reported map[error]struct{}
}

// NewDifferencer creates differencer without background. Background must be
// set before Apply succeeds.
func NewDifferencer() *Differencer {
	return &Differencer{
		reported: make(map[error]struct{}),
	}
}

// SetBackground replaces background frame. The frame must be single channel.
// The frame is copied. A size change recreates scratch buffers and drops ROI of different size.
func (d *Differencer) SetBackground(background *Frame) error {
	if background == nil {
		return d.fail(ErrNilBackground)
	}
	if background.Channels != 1 {
		return d.fail(errors.Wrapf(ErrBadChannels, "background has %d channels, expected 1", background.Channels))
	}
	if d.background != nil && !d.background.SameSize(background) {
		d.scratch.release()
		if d.roi != nil && !d.roi.SameSize(background) {
			Logf("blobtrack: ROI %dx%d dropped after background size change to %dx%d", d.roi.Width, d.roi.Height, background.Width, background.Height)
			d.roi = nil
		}
	}
	d.background = background.Clone()
	d.scratch.ensure(background.Width, background.Height)
	d.resetReports()
	return nil
}

// SetROI sets binary region of interest mask. Pixels where ROI is 0 are never foreground.
// Passing nil clears ROI.
func (d *Differencer) SetROI(roi *Frame) error {
	if roi == nil {
		d.roi = nil
		return nil
	}
	if roi.Channels != 1 {
		return d.fail(errors.Wrapf(ErrBadChannels, "ROI has %d channels, expected 1", roi.Channels))
	}
	if d.background == nil {
		return d.fail(ErrNilBackground)
	}
	if !roi.SameSize(d.background) {
		return d.fail(errors.Wrapf(ErrSizeMismatch, "ROI is %dx%d, background is %dx%d", roi.Width, roi.Height, d.background.Width, d.background.Height))
	}
	d.roi = roi.Clone()
	return nil
}

// Background returns current background frame (nil if not set)
func (d *Differencer) Background() *Frame {
	return d.background
}

// ROI returns current ROI mask (nil if not set)
func (d *Differencer) ROI() *Frame {
	return d.roi
}

// Apply computes thresholded mask of the frame. Frame may be gray or BGR and is not modified.
// The returned frame is owned by the differencer and overwritten by the next call.
// Threshold is clamped to [0, 512].
func (d *Differencer) Apply(frame *Frame, threshold int) (*Frame, error) {
	if d.background == nil {
		return nil, d.fail(ErrNilBackground)
	}
	if frame == nil {
		return nil, d.fail(ErrNilFrame)
	}
	if frame.Channels != 1 && frame.Channels != 3 {
		return nil, d.fail(errors.Wrapf(ErrBadChannels, "frame has %d channels, expected 1 or 3", frame.Channels))
	}
	if !frame.SameSize(d.background) {
		return nil, d.fail(errors.Wrapf(ErrSizeMismatch, "frame is %dx%d, background is %dx%d", frame.Width, frame.Height, d.background.Width, d.background.Height))
	}
	threshold = clampInt(threshold, 0, MaxDiffThreshold)
	d.scratch.ensure(frame.Width, frame.Height)

	gray := frame
	if frame.Channels == 3 {
		convertToGray(d.scratch.gray, frame)
		gray = d.scratch.gray
	} else {
		for y := 0; y < frame.Height; y++ {
			copy(d.scratch.gray.Pix[y*d.scratch.gray.Stride:y*d.scratch.gray.Stride+frame.Width], frame.Pix[y*frame.Stride:y*frame.Stride+frame.Width])
		}
	}

	bg := d.background
	diff := d.scratch.diff
	thresh := d.scratch.thresh
	for y := 0; y < frame.Height; y++ {
		bgRow := bg.Pix[y*bg.Stride:]
		fRow := gray.Pix[y*gray.Stride:]
		diffRow := diff.Pix[y*diff.Stride:]
		threshRow := thresh.Pix[y*thresh.Stride:]
		var roiRow []uint8
		if d.roi != nil {
			roiRow = d.roi.Pix[y*d.roi.Stride:]
		}
		for x := 0; x < frame.Width; x++ {
			b := bgRow[x]
			f := fRow[x]
			// Brighter than background contributes nothing
			var delta uint8
			if b > f {
				delta = b - f
			}
			diffRow[x] = delta
			if delta > 0 && int(delta) >= threshold && (roiRow == nil || roiRow[x] != 0) {
				threshRow[x] = 255
			} else {
				threshRow[x] = 0
			}
		}
	}
	return thresh, nil
}

// GrayFrame returns grayscale copy of the last frame
func (d *Differencer) GrayFrame() *Frame {
	return d.scratch.gray
}

// DiffFrame returns sign-aware difference of the last frame
func (d *Differencer) DiffFrame() *Frame {
	return d.scratch.diff
}

// ThreshFrame returns binary mask of the last frame
func (d *Differencer) ThreshFrame() *Frame {
	return d.scratch.thresh
}

// ThresholdToSparse returns the last mask as a list of foreground pixels
func (d *Differencer) ThresholdToSparse() *SparseMask {
	if !d.scratch.allocated() {
		return &SparseMask{}
	}
	return NewSparseMask(d.scratch.thresh)
}

// Release drops scratch buffers. Differencer stays usable: buffers are recreated on demand
func (d *Differencer) Release() {
	d.scratch.release()
}

func (d *Differencer) fail(err error) error {
	cause := errors.Cause(err)
	if _, ok := d.reported[cause]; !ok {
		d.reported[cause] = struct{}{}
		Logf("blobtrack: configuration error: %v", err)
	}
	return err
}

func (d *Differencer) resetReports() {
	for k := range d.reported {
		delete(d.reported, k)
	}
}
