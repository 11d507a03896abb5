package mem

import (
	"sync"

	"github.com/robert-malhotra/go-raster/raster"
)

var (
	_ raster.Driver      = (*Driver)(nil)
	_ raster.AsyncDriver = (*AsyncDriver)(nil)
)

// Burst is a contiguous run of window-relative rows [Start, End) that the
// decoder delivers as one update.
type Burst struct {
	Start, End int
}

// AsyncDriver wraps a Driver with a scripted progressive decoder: each decode
// delivers the configured bursts in order, publishing one update per burst
// and completing after the last. Without bursts the whole window is one
// burst.
type AsyncDriver struct {
	*Driver
	bursts []Burst
	paced  bool
	step   chan struct{}
}

// NewAsync wraps d in a free-running progressive decoder.
func NewAsync(d *Driver, bursts ...Burst) *AsyncDriver {
	return &AsyncDriver{Driver: d, bursts: bursts}
}

// Paced gates the decoder: it waits for one Advance call before each burst,
// which lets tests drive delivery deterministically.
func (a *AsyncDriver) Paced() *AsyncDriver {
	a.paced = true
	a.step = make(chan struct{})
	return a
}

// Advance releases the next burst. It blocks until the decoder takes the
// step, so the caller knows delivery of the previous burst has been observed
// before the next begins.
func (a *AsyncDriver) Advance() {
	a.step <- struct{}{}
}

func (a *AsyncDriver) BeginDecode(win raster.Window, bands []int, sink raster.DecodeSink) (raster.DecodeHandle, error) {
	bursts := a.bursts
	if len(bursts) == 0 {
		bursts = []Burst{{0, win.Height}}
	}
	h := &decodeHandle{cancel: make(chan struct{}), done: make(chan struct{})}
	go a.decode(win, bands, sink, bursts, h)
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

func (a *AsyncDriver) decode(win raster.Window, bands []int, sink raster.DecodeSink, bursts []Burst, h *decodeHandle) {
	defer close(h.done)
	line := make([]byte, win.Width*a.dtype.Size())
	for i, b := range bursts {
		if a.paced {
			select {
			case <-a.step:
			case <-h.cancel:
				return
			}
		}
		for row := b.Start; row < b.End; row++ {
			select {
			case <-h.cancel:
				return
			default:
			}
			abs := win.YOff + row
			for _, band := range bands {
				if err := a.ReadLine(band, abs, win.XOff, win.Width, line); err != nil {
					sink.DecodeFailed(err)
					return
				}
				sink.DeliverLine(band, abs, win.XOff, line)
			}
		}
		sink.PublishUpdate()
		if i == len(bursts)-1 {
			sink.DecodeComplete()
		}
	}
}
