package blobtrack

import (
	"image"
	"image/color"
)

// Frame is an 8-bit pixel buffer with either one (gray) or three (BGR) channels.
// Frames handed to the pipeline are only read.
type Frame struct {
	Width    int
	Height   int
	Stride   int
	Channels int
	Pix      []uint8
}

// NewGrayFrame allocates zeroed single channel frame
func NewGrayFrame(width, height int) *Frame {
	return newFrame(width, height, 1)
}

// NewBGRFrame allocates zeroed three channel frame
func NewBGRFrame(width, height int) *Frame {
	return newFrame(width, height, 3)
}

func newFrame(width, height, channels int) *Frame {
	width = maxInt(width, 0)
	height = maxInt(height, 0)
	return &Frame{
		Width:    width,
		Height:   height,
		Stride:   width * channels,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// FrameFromImage copies an image into a frame. Gray images give a single channel
// frame, anything else gives a BGR frame.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		f := NewGrayFrame(b.Dx(), b.Dy())
		for y := 0; y < f.Height; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(f.Pix[y*f.Stride:y*f.Stride+f.Width], src.Pix[off:off+f.Width])
		}
		return f
	}
	f := NewBGRFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride:]
		for x := 0; x < f.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			row[3*x] = c.B
			row[3*x+1] = c.G
			row[3*x+2] = c.R
		}
	}
	return f
}

// Bounds returns frame rectangle starting at (0, 0)
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At returns first channel value at (x, y). Out of bounds pixels are 0
func (f *Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pix[y*f.Stride+x*f.Channels]
}

// Set sets every channel at (x, y) to v. Out of bounds writes are ignored
func (f *Frame) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := y*f.Stride + x*f.Channels
	for c := 0; c < f.Channels; c++ {
		f.Pix[i+c] = v
	}
}

// SetBGR sets pixel color of three channel frame
func (f *Frame) SetBGR(x, y int, b, g, r uint8) {
	if f.Channels != 3 || x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := y*f.Stride + 3*x
	f.Pix[i] = b
	f.Pix[i+1] = g
	f.Pix[i+2] = r
}

// Fill sets every pixel of every channel to v
func (f *Frame) Fill(v uint8) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Clone returns deep copy of the frame
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Pix = make([]uint8, len(f.Pix))
	copy(cp.Pix, f.Pix)
	return &cp
}

// SameSize reports whether both frames have equal width and height
func (f *Frame) SameSize(other *Frame) bool {
	return f != nil && other != nil && f.Width == other.Width && f.Height == other.Height
}

// ToGray returns gray copy of the frame
func (f *Frame) ToGray() *Frame {
	if f.Channels == 1 {
		return f.Clone()
	}
	dst := NewGrayFrame(f.Width, f.Height)
	convertToGray(dst, f)
	return dst
}

// Image returns gray image of the frame for display or encoding. BGR frames are converted
func (f *Frame) Image() *image.Gray {
	src := f
	if f.Channels == 3 {
		src = f.ToGray()
	}
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+f.Width], src.Pix[y*src.Stride:y*src.Stride+f.Width])
	}
	return img
}

// luma returns 0.299R + 0.587G + 0.114B rounded to nearest
func luma(b, g, r uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// convertToGray writes luma of BGR frame src into gray frame dst of the same size
func convertToGray(dst, src *Frame) {
	for y := 0; y < src.Height; y++ {
		srow := src.Pix[y*src.Stride:]
		drow := dst.Pix[y*dst.Stride:]
		for x := 0; x < src.Width; x++ {
			drow[x] = luma(srow[3*x], srow[3*x+1], srow[3*x+2])
		}
	}
}
