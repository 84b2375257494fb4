package blobtrack

import (
	"log"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifferencerSignAware(t *testing.T) {
	bg := newFilledFrame(6, 6, 100)
	frame := newFilledFrame(6, 6, 100)
	frame.Set(1, 1, 50)  // darker by 50
	frame.Set(2, 2, 150) // brighter by 50
	frame.Set(3, 3, 80)  // darker by 20
	frame.Set(4, 4, 70)  // darker by exactly the threshold

	d := NewDifferencer()
	require.NoError(t, d.SetBackground(bg))
	mask, err := d.Apply(frame, 30)
	require.NoError(t, err)

	assert.Equal(t, uint8(255), mask.At(1, 1))
	assert.Equal(t, uint8(0), mask.At(2, 2))
	assert.Equal(t, uint8(0), mask.At(3, 3))
	assert.Equal(t, uint8(255), mask.At(4, 4))
	assert.Equal(t, uint8(0), mask.At(0, 0))

	diff := d.DiffFrame()
	assert.Equal(t, uint8(50), diff.At(1, 1))
	assert.Equal(t, uint8(0), diff.At(2, 2))
	assert.Equal(t, uint8(20), diff.At(3, 3))

	assert.Equal(t, 2, d.ThresholdToSparse().Len())
	// Input frame is never modified
	assert.Equal(t, uint8(150), frame.At(2, 2))
}

func TestDifferencerROI(t *testing.T) {
	bg := newFilledFrame(4, 4, 200)
	frame := newFilledFrame(4, 4, 10)
	roi := newFilledFrame(4, 4, 255)
	roi.Set(0, 0, 0)

	d := NewDifferencer()
	require.NoError(t, d.SetBackground(bg))
	require.NoError(t, d.SetROI(roi))
	mask, err := d.Apply(frame, 10)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), mask.At(0, 0))
	assert.Equal(t, uint8(255), mask.At(1, 0))

	require.NoError(t, d.SetROI(nil))
	mask, err = d.Apply(frame, 10)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), mask.At(0, 0))

	err = d.SetROI(newFilledFrame(3, 4, 255))
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestDifferencerIdempotent(t *testing.T) {
	bg := newFilledFrame(50, 40, 180)
	frame := newFilledFrame(50, 40, 180)
	drawDisk(frame, 20, 20, 8, 40)
	drawDisk(frame, 35, 25, 5, 150)

	d := NewDifferencer()
	require.NoError(t, d.SetBackground(bg))
	first, err := d.Apply(frame, 35)
	require.NoError(t, err)
	firstPix := append([]uint8(nil), first.Pix...)
	second, err := d.Apply(frame, 35)
	require.NoError(t, err)
	if diff := cmp.Diff(firstPix, second.Pix); diff != "" {
		t.Errorf("masks differ (-first +second):\n%s", diff)
	}
}

func TestDifferencerBGR(t *testing.T) {
	bg := newFilledFrame(3, 3, 200)
	frame := NewBGRFrame(3, 3)
	frame.Fill(200)
	frame.SetBGR(1, 1, 50, 100, 200) // luma 124

	d := NewDifferencer()
	require.NoError(t, d.SetBackground(bg))
	mask, err := d.Apply(frame, 60)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), mask.At(1, 1))
	assert.Equal(t, uint8(0), mask.At(0, 0))
	assert.Equal(t, uint8(124), d.GrayFrame().At(1, 1))
	assert.Equal(t, uint8(76), d.DiffFrame().At(1, 1))
}

func TestDifferencerConfigurationErrors(t *testing.T) {
	logged := 0
	SetLogger(func(string, ...interface{}) { logged++ })
	t.Cleanup(func() { SetLogger(log.Printf) })

	d := NewDifferencer()
	_, err := d.Apply(newFilledFrame(4, 4, 0), 10)
	require.True(t, errors.Is(err, ErrNilBackground))
	_, err = d.Apply(newFilledFrame(4, 4, 0), 10)
	require.True(t, errors.Is(err, ErrNilBackground))
	assert.Equal(t, 1, logged, "repeated configuration error must be logged once")

	require.True(t, errors.Is(d.SetBackground(NewBGRFrame(4, 4)), ErrBadChannels))
	require.NoError(t, d.SetBackground(newFilledFrame(4, 4, 100)))

	_, err = d.Apply(nil, 10)
	assert.True(t, errors.Is(err, ErrNilFrame))
	_, err = d.Apply(&Frame{Width: 4, Height: 4, Stride: 8, Channels: 2, Pix: make([]uint8, 32)}, 10)
	assert.True(t, errors.Is(err, ErrBadChannels))
	_, err = d.Apply(newFilledFrame(5, 4, 0), 10)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
	assert.True(t, IsConfigurationError(err))
}

func TestDifferencerBackgroundResize(t *testing.T) {
	muteLogger(t)
	d := NewDifferencer()
	require.NoError(t, d.SetBackground(newFilledFrame(4, 4, 100)))
	require.NoError(t, d.SetROI(newFilledFrame(4, 4, 255)))
	require.NoError(t, d.SetBackground(newFilledFrame(8, 6, 100)))
	assert.Nil(t, d.ROI())

	mask, err := d.Apply(newFilledFrame(8, 6, 0), 10)
	require.NoError(t, err)
	assert.Equal(t, 8, mask.Width)
	assert.Equal(t, 6, mask.Height)
}
