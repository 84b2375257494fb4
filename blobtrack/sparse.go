package blobtrack

import "image"

// SparseMask stores foreground pixels of a binary mask as linear indexes (y*Width + x)
type SparseMask struct {
	Width   int
	Height  int
	Indexes []int
}

// NewSparseMask collects every non-zero pixel of the mask
func NewSparseMask(mask *Frame) *SparseMask {
	sm := &SparseMask{
		Width:  mask.Width,
		Height: mask.Height,
	}
	for y := 0; y < mask.Height; y++ {
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < mask.Width; x++ {
			if row[x*mask.Channels] != 0 {
				sm.Indexes = append(sm.Indexes, y*mask.Width+x)
			}
		}
	}
	return sm
}

// Len returns number of foreground pixels
func (sm *SparseMask) Len() int {
	return len(sm.Indexes)
}

// Point returns coordinates of i-th foreground pixel
func (sm *SparseMask) Point(i int) image.Point {
	idx := sm.Indexes[i]
	return image.Pt(idx%sm.Width, idx/sm.Width)
}

// ToFrame expands mask back to a gray frame with given values
func (sm *SparseMask) ToFrame(off, on uint8) *Frame {
	f := NewGrayFrame(sm.Width, sm.Height)
	if off != 0 {
		f.Fill(off)
	}
	for _, idx := range sm.Indexes {
		f.Pix[idx] = on
	}
	return f
}
