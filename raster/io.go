package raster

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/robert-malhotra/go-raster/internal/convert"
)

type ioOp int

const (
	opRead ioOp = iota
	opWrite
)

// sliceBytes exposes a typed sample slice as raw bytes and reports its
// DataType. The byte view aliases the caller's slice; nothing is copied.
func sliceBytes(buf interface{}) ([]byte, DataType, error) {
	v := reflect.ValueOf(buf)
	if !v.IsValid() || v.Kind() != reflect.Slice {
		return nil, Unknown, fmt.Errorf("%w: buffer must be a typed slice, got %T", ErrInvalidArgument, buf)
	}
	dt := dataTypeOfKind(v.Type().Elem().Kind())
	if dt == Unknown {
		return nil, Unknown, fmt.Errorf("%w: unsupported buffer element type %s", ErrInvalidArgument, v.Type().Elem())
	}
	if v.Len() == 0 {
		return nil, dt, nil
	}
	return unsafe.Slice((*byte)(v.UnsafePointer()), v.Len()*dt.Size()), dt, nil
}

// resolveBands turns a band selection into a slot-ordered list of physical
// band indices, defaulting to identity. Duplicates are legal.
func (d *Dataset) resolveBands(sel []int) ([]int, error) {
	if len(sel) == 0 {
		bands := make([]int, d.bands)
		for i := range bands {
			bands[i] = i + 1
		}
		return bands, nil
	}
	for _, b := range sel {
		if b < 1 || b > d.bands {
			return nil, fmt.Errorf("%w: band %d of %d", ErrInvalidArgument, b, d.bands)
		}
	}
	return sel, nil
}

// prepare runs the shared validation of the synchronous and progressive
// paths: buffer typing, stride defaulting, window bounds, band selection,
// buffer capacity. Nothing is transferred until it succeeds.
func (d *Dataset) prepare(win Window, buf interface{}, o *ioOptions) (Window, []byte, []int, error) {
	bufBytes, bufType, err := sliceBytes(buf)
	if err != nil {
		return win, nil, nil, err
	}
	if win.Type == Unknown {
		win.Type = bufType
	} else if win.Type != bufType {
		return win, nil, nil, fmt.Errorf("%w: window declares %s but buffer holds %s",
			ErrInvalidArgument, win.Type, bufType)
	}
	win = win.withDefaults()
	if err := win.validate(d.width, d.height); err != nil {
		return win, nil, nil, err
	}
	bands, err := d.resolveBands(o.bands)
	if err != nil {
		return win, nil, nil, err
	}
	if need := win.bufferBytes(len(bands)); need > len(bufBytes) {
		return win, nil, nil, fmt.Errorf("%w: buffer holds %d bytes, layout needs %d",
			ErrInvalidArgument, len(bufBytes), need)
	}
	return win, bufBytes, bands, nil
}

// transfer drives the windowed transfer contract: per band, per line,
// top to bottom, through a native-packed staging line.
func (d *Dataset) transfer(op ioOp, win Window, buf interface{}, o *ioOptions) error {
	win, bufBytes, bands, err := d.prepare(win, buf, o)
	if err != nil {
		return err
	}

	native := d.drv.DataType()
	staging := make([]byte, win.Width*native.Size())
	done := 0
	for slot, band := range bands {
		rows := win.BufHeight
		if op == opWrite {
			rows = win.Height
		}
		for row := 0; row < rows; row++ {
			if op == opRead {
				srcRow := win.YOff + win.srcRow(row)
				if err := d.drv.ReadLine(band, srcRow, win.XOff, win.Width, staging); err != nil {
					return fmt.Errorf("%w: band %d line %d (%d lines already transferred): %v",
						ErrBackend, band, srcRow, done, err)
				}
				scatterLine(bufBytes, win, slot, row, staging, native)
			} else {
				gatherLine(staging, native, win, slot, win.bufRow(row), bufBytes)
				if err := d.drv.WriteLine(band, win.YOff+row, win.XOff, win.Width, staging); err != nil {
					return fmt.Errorf("%w: band %d line %d (%d lines already transferred): %v",
						ErrBackend, band, win.YOff+row, done, err)
				}
			}
			done++
		}
	}
	return nil
}

// scatterLine converts a native-packed source line into buffer row bufRow of
// band slot, applying the pixel stride and column resampling.
func scatterLine(dst []byte, win Window, slot, bufRow int, native []byte, nt DataType) {
	st, dt := convert.Type(nt), convert.Type(win.Type)
	nsz := nt.Size()
	if win.BufWidth == win.Width {
		convert.Convert(dst[win.sampleOffset(slot, bufRow, 0):], dt, win.PixelStride,
			native, st, nsz, win.BufWidth)
		return
	}
	for col := 0; col < win.BufWidth; col++ {
		convert.Convert(dst[win.sampleOffset(slot, bufRow, col):], dt, win.PixelStride,
			native[win.srcCol(col)*nsz:], st, nsz, 1)
	}
}

// gatherLine fills a native-packed line for one source row of the window from
// buffer row bufRow of band slot.
func gatherLine(native []byte, nt DataType, win Window, slot, bufRow int, src []byte) {
	st, dt := convert.Type(win.Type), convert.Type(nt)
	nsz := nt.Size()
	if win.BufWidth == win.Width {
		convert.Convert(native, dt, nsz,
			src[win.sampleOffset(slot, bufRow, 0):], st, win.PixelStride, win.Width)
		return
	}
	for col := 0; col < win.Width; col++ {
		convert.Convert(native[col*nsz:], dt, nsz,
			src[win.sampleOffset(slot, bufRow, win.bufCol(col)):], st, win.PixelStride, 1)
	}
}
