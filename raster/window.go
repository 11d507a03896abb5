package raster

import "fmt"

// Window describes one windowed transfer: a rectangle in source pixel space,
// the dimensions of the caller's buffer, the declared sample type of that
// buffer, and the byte strides between consecutive samples, lines and band
// planes inside it.
//
// A zero stride selects the tightly packed default: pixel stride = sample
// size, line stride = pixel stride x BufWidth, band stride = line stride x
// BufHeight. Zero BufWidth/BufHeight default to Width/Height. Buffer
// dimensions that differ from the window imply nearest-neighbor replication
// or decimation of source samples.
type Window struct {
	XOff, YOff    int
	Width, Height int

	BufWidth, BufHeight int

	// Type is the sample type of the caller buffer. When left Unknown it is
	// inferred from the buffer's slice element type.
	Type DataType

	// Strides in bytes. Zero means packed default.
	PixelStride int
	LineStride  int
	BandStride  int
}

// WindowOf returns a packed full-resolution window for the given rectangle.
func WindowOf(xOff, yOff, width, height int) Window {
	return Window{XOff: xOff, YOff: yOff, Width: width, Height: height}
}

// withDefaults returns a copy with buffer dimensions and strides filled in.
// Type must already be resolved.
func (w Window) withDefaults() Window {
	if w.BufWidth == 0 {
		w.BufWidth = w.Width
	}
	if w.BufHeight == 0 {
		w.BufHeight = w.Height
	}
	size := w.Type.Size()
	if w.PixelStride == 0 {
		w.PixelStride = size
	}
	if w.LineStride == 0 {
		w.LineStride = w.PixelStride * w.BufWidth
	}
	if w.BandStride == 0 {
		w.BandStride = w.LineStride * w.BufHeight
	}
	return w
}

// validate checks a defaulted window against the raster extent. Malformed
// geometry and strides are ErrInvalidArgument; a well-formed window that
// falls outside the extent is ErrOutOfRange.
func (w Window) validate(rasterWidth, rasterHeight int) error {
	if w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidArgument, w.Width, w.Height)
	}
	if w.BufWidth <= 0 || w.BufHeight <= 0 {
		return fmt.Errorf("%w: buffer size %dx%d", ErrInvalidArgument, w.BufWidth, w.BufHeight)
	}
	if w.Type == Unknown || w.Type > CFloat64 {
		return fmt.Errorf("%w: unknown sample type", ErrInvalidArgument)
	}
	// A pixel stride below the sample size would make neighboring samples
	// overlap.
	if w.PixelStride < w.Type.Size() {
		return fmt.Errorf("%w: pixel stride %d smaller than sample size %d",
			ErrInvalidArgument, w.PixelStride, w.Type.Size())
	}
	if w.LineStride < 0 || w.BandStride < 0 {
		return fmt.Errorf("%w: negative stride", ErrInvalidArgument)
	}
	if w.XOff < 0 || w.YOff < 0 || w.XOff+w.Width > rasterWidth || w.YOff+w.Height > rasterHeight {
		return fmt.Errorf("%w: window (%d,%d %dx%d) vs raster %dx%d",
			ErrOutOfRange, w.XOff, w.YOff, w.Width, w.Height, rasterWidth, rasterHeight)
	}
	return nil
}

// bufferBytes returns the number of bytes the strided layout can touch for
// the given band count, measured from the buffer origin.
func (w Window) bufferBytes(bands int) int {
	return w.BandStride*(bands-1) + w.LineStride*(w.BufHeight-1) +
		w.PixelStride*(w.BufWidth-1) + w.Type.Size()
}

// sampleOffset returns the byte offset of sample (col,row) of band slot.
func (w Window) sampleOffset(slot, row, col int) int {
	return w.BandStride*slot + w.LineStride*row + w.PixelStride*col
}

// srcCol maps a buffer column to a window-relative source column
// (nearest-neighbor, GDAL default resampling).
func (w Window) srcCol(bufCol int) int {
	if w.BufWidth == w.Width {
		return bufCol
	}
	return bufCol * w.Width / w.BufWidth
}

// srcRow maps a buffer row to a window-relative source row.
func (w Window) srcRow(bufRow int) int {
	if w.BufHeight == w.Height {
		return bufRow
	}
	return bufRow * w.Height / w.BufHeight
}

// bufCol maps a window-relative source column to a buffer column.
func (w Window) bufCol(srcCol int) int {
	if w.BufWidth == w.Width {
		return srcCol
	}
	return srcCol * w.BufWidth / w.Width
}

// bufRow maps a window-relative source row to a buffer row.
func (w Window) bufRow(srcRow int) int {
	if w.BufHeight == w.Height {
		return srcRow
	}
	return srcRow * w.BufHeight / w.Height
}

// Region is a rectangle of a raster, in source pixel coordinates. Progressive
// reads report the extent refreshed by each update through it.
type Region struct {
	XOff, YOff    int
	Width, Height int
}

// IsEmpty returns true for the zero region.
func (r Region) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}
