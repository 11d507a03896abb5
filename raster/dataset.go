package raster

import "fmt"

// Dataset is a handle over one format backend. It is safe for concurrent use
// as long as the underlying driver is; the access layer itself keeps no
// mutable state between calls.
type Dataset struct {
	drv    Driver
	width  int
	height int
	bands  int
}

// NewDataset wraps a backend driver in a Dataset handle.
func NewDataset(drv Driver) *Dataset {
	w, h := drv.Size()
	return &Dataset{drv: drv, width: w, height: h, bands: drv.BandCount()}
}

// Width returns the raster width in pixels.
func (d *Dataset) Width() int { return d.width }

// Height returns the raster height in pixels.
func (d *Dataset) Height() int { return d.height }

// BandCount returns the number of bands.
func (d *Dataset) BandCount() int { return d.bands }

// DataType returns the backend's native sample type.
func (d *Dataset) DataType() DataType { return d.drv.DataType() }

// Driver returns the underlying backend driver.
func (d *Dataset) Driver() Driver { return d.drv }

// Band returns a handle for the 1-based band index.
func (d *Dataset) Band(index int) (*Band, error) {
	if index < 1 || index > d.bands {
		return nil, fmt.Errorf("%w: band %d of %d", ErrInvalidArgument, index, d.bands)
	}
	return &Band{ds: d, index: index}, nil
}

// Read copies the window's pixels into buf, a typed slice laid out according
// to the window's buffer dimensions and strides, converting sample types as
// needed. On a backend failure mid-transfer, lines already copied remain
// valid in buf and the error reports how many were.
func (d *Dataset) Read(win Window, buf interface{}, opts ...IOOption) error {
	return d.transfer(opRead, win, buf, applyIOOptions(opts))
}

// Write is the symmetric operation: it copies pixels from buf into the
// window, converting from the buffer's type to the backend's native type.
func (d *Dataset) Write(win Window, buf interface{}, opts ...IOOption) error {
	return d.transfer(opWrite, win, buf, applyIOOptions(opts))
}
