// Package mem provides an in-memory raster backend. It implements the full
// synchronous line-transfer capability plus a scripted progressive decoder,
// which makes it the reference backend for exercising the access layer
// without any on-disk format.
package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/robert-malhotra/go-raster/internal/convert"
	"github.com/robert-malhotra/go-raster/raster"
)

// Driver holds one native-packed plane per band.
type Driver struct {
	width  int
	height int
	bands  int
	dtype  raster.DataType

	// mu guards the planes and the fault-injection counters; a sync
	// transfer may overlap a scripted decode on the same driver.
	mu        sync.Mutex
	planes    [][]byte
	transfers int
	failAfter int
}

// New creates a zero-filled in-memory raster.
func New(width, height, bands int, dtype raster.DataType) *Driver {
	planes := make([][]byte, bands)
	for i := range planes {
		planes[i] = make([]byte, width*height*dtype.Size())
	}
	return &Driver{
		width:     width,
		height:    height,
		bands:     bands,
		dtype:     dtype,
		planes:    planes,
		failAfter: -1,
	}
}

func (d *Driver) Size() (int, int)          { return d.width, d.height }
func (d *Driver) BandCount() int            { return d.bands }
func (d *Driver) DataType() raster.DataType { return d.dtype }

// Plane returns the native-packed backing storage of a band. Intended for
// test setup and verification; not synchronized against in-flight transfers.
func (d *Driver) Plane(band int) []byte { return d.planes[band-1] }

// Fill sets every sample of a band to v, converted to the native type.
func (d *Driver) Fill(band int, v float64) {
	var f64 [8]byte
	binary.NativeEndian.PutUint64(f64[:], math.Float64bits(v))
	sz := d.dtype.Size()
	sample := make([]byte, sz)
	convert.Convert(sample, convert.Type(d.dtype), sz, f64[:], convert.F64, 8, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	plane := d.planes[band-1]
	for off := 0; off < len(plane); off += sz {
		copy(plane[off:], sample)
	}
}

// SetFailAfter makes the n+1th line transfer fail; n < 0 disables injection.
func (d *Driver) SetFailAfter(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAfter = n
	d.transfers = 0
}

func (d *Driver) bumpLocked() error {
	if d.failAfter >= 0 && d.transfers >= d.failAfter {
		return errors.New("injected line failure")
	}
	d.transfers++
	return nil
}

func (d *Driver) check(band, row, xOff, width int) error {
	if band < 1 || band > d.bands {
		return fmt.Errorf("band %d outside raster", band)
	}
	if row < 0 || row >= d.height || xOff < 0 || xOff+width > d.width {
		return fmt.Errorf("line %d [%d,%d) outside raster", row, xOff, xOff+width)
	}
	return nil
}

func (d *Driver) ReadLine(band, row, xOff, width int, dst []byte) error {
	if err := d.check(band, row, xOff, width); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.bumpLocked(); err != nil {
		return err
	}
	sz := d.dtype.Size()
	off := (row*d.width + xOff) * sz
	copy(dst[:width*sz], d.planes[band-1][off:])
	return nil
}

func (d *Driver) WriteLine(band, row, xOff, width int, src []byte) error {
	if err := d.check(band, row, xOff, width); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.bumpLocked(); err != nil {
		return err
	}
	sz := d.dtype.Size()
	off := (row*d.width + xOff) * sz
	copy(d.planes[band-1][off:off+width*sz], src)
	return nil
}
