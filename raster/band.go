package raster

// Band addresses one band of a Dataset.
type Band struct {
	ds    *Dataset
	index int
}

// Index returns the 1-based band index.
func (b *Band) Index() int { return b.index }

// Dataset returns the owning dataset.
func (b *Band) Dataset() *Dataset { return b.ds }

// Width returns the raster width in pixels.
func (b *Band) Width() int { return b.ds.width }

// Height returns the raster height in pixels.
func (b *Band) Height() int { return b.ds.height }

// DataType returns the backend's native sample type.
func (b *Band) DataType() DataType { return b.ds.DataType() }

// Read populates buffer with the pixels of the window anchored at
// (srcX, srcY). The window size defaults to the buffer size; use
// WithWindowSize for replication or decimation.
func (b *Band) Read(srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...IOOption) error {
	return b.io(opRead, srcX, srcY, buffer, bufWidth, bufHeight, opts)
}

// Write sets the band's pixels in the window anchored at (srcX, srcY) to the
// contents of buffer.
func (b *Band) Write(srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...IOOption) error {
	return b.io(opWrite, srcX, srcY, buffer, bufWidth, bufHeight, opts)
}

func (b *Band) io(op ioOp, srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts []IOOption) error {
	o := applyIOOptions(opts)
	w, h := o.winWidth, o.winHeight
	if w == 0 {
		w = bufWidth
	}
	if h == 0 {
		h = bufHeight
	}
	win := Window{
		XOff: srcX, YOff: srcY,
		Width: w, Height: h,
		BufWidth: bufWidth, BufHeight: bufHeight,
	}
	o.bands = []int{b.index}
	return b.ds.transfer(op, win, buffer, o)
}
