package blobtrack

// scratchPool owns the per-frame scratch buffers. Buffers are reallocated only
// when frame dimensions change.
type scratchPool struct {
	width  int
	height int
	gray   *Frame
	diff   *Frame
	thresh *Frame
}

// ensure makes sure buffers match the given size. Returns true when buffers were (re)allocated
func (p *scratchPool) ensure(width, height int) bool {
	if p.gray != nil && p.width == width && p.height == height {
		return false
	}
	p.release()
	p.width = width
	p.height = height
	p.gray = NewGrayFrame(width, height)
	p.diff = NewGrayFrame(width, height)
	p.thresh = NewGrayFrame(width, height)
	return true
}

// release drops all buffers
func (p *scratchPool) release() {
	p.width = 0
	p.height = 0
	p.gray = nil
	p.diff = nil
	p.thresh = nil
}

func (p *scratchPool) allocated() bool {
	return p.gray != nil
}
