package tilestore

import (
	"sync"

	"github.com/robert-malhotra/go-raster/raster"
)

var (
	_ raster.Driver      = (*Store)(nil)
	_ raster.AsyncDriver = (*Store)(nil)
)

// BeginDecode starts a progressive read that walks the window's tile rows top
// to bottom, publishing one update per tile row. Concurrent decodes are
// bounded by the store's semaphore; beyond it they queue, invisible to
// callers.
func (s *Store) BeginDecode(win raster.Window, bands []int, sink raster.DecodeSink) (raster.DecodeHandle, error) {
	h := &decodeHandle{cancel: make(chan struct{}), done: make(chan struct{})}
	go s.decode(win, bands, sink, h)
	return h, nil
}

type decodeHandle struct {
	cancel chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (h *decodeHandle) Cancel() {
	h.once.Do(func() { close(h.cancel) })
	<-h.done
}

func (s *Store) decode(win raster.Window, bands []int, sink raster.DecodeSink, h *decodeHandle) {
	defer close(h.done)

	select {
	case s.sem <- struct{}{}:
	case <-h.cancel:
		return
	}
	defer func() { <-s.sem }()

	line := make([]byte, win.Width*s.dtype.Size())
	ty0 := win.YOff / s.tileSize
	ty1 := (win.YOff + win.Height - 1) / s.tileSize
	for ty := ty0; ty <= ty1; ty++ {
		rowStart := ty * s.tileSize
		if rowStart < win.YOff {
			rowStart = win.YOff
		}
		rowEnd := (ty + 1) * s.tileSize
		if rowEnd > win.YOff+win.Height {
			rowEnd = win.YOff + win.Height
		}
		for row := rowStart; row < rowEnd; row++ {
			select {
			case <-h.cancel:
				return
			default:
			}
			for _, band := range bands {
				if err := s.ReadLine(band, row, win.XOff, win.Width, line); err != nil {
					sink.DecodeFailed(err)
					return
				}
				sink.DeliverLine(band, row, win.XOff, line)
			}
		}
		sink.PublishUpdate()
	}
	sink.DecodeComplete()
}
