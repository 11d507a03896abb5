package raster

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robert-malhotra/go-raster/internal/convert"
)

// RequestState is the lifecycle state of an AsyncReadRequest.
type RequestState uint8

const (
	StatePending RequestState = iota
	StateUpdateAvailable
	StateComplete
	StateError
)

func (s RequestState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateUpdateAvailable:
		return "UpdateAvailable"
	case StateComplete:
		return "Complete"
	default:
		return "Error"
	}
}

// Status is what one poll of GetNextUpdatedRegion reports.
type Status uint8

const (
	StatusPending Status = iota
	StatusUpdate
	StatusComplete
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUpdate:
		return "Update"
	case StatusComplete:
		return "Complete"
	default:
		return "Error"
	}
}

// AsyncReadRequest is one in-flight progressive read. The backend's decode
// goroutine fills the destination buffer through the DecodeSink side; the
// caller polls GetNextUpdatedRegion and reads the buffer between LockBuffer
// and UnlockBuffer. The destination buffer stays caller-owned; the request
// only borrows it and must be ended with Dataset.EndAsyncRead before the
// buffer is reused or released.
type AsyncReadRequest struct {
	id     uuid.UUID
	ds     *Dataset
	win    Window
	native DataType
	buf    []byte
	// slots maps a physical band to the buffer band slots it fills;
	// duplicate band selections give a band several slots.
	slots map[int][]int

	// mu guards both the buffer contents and the request state. The decode
	// side converts newly delivered lines into buf under it; the polling
	// side reads state and the caller reads buf under it.
	mu       sync.Mutex
	state    RequestState
	updated  bool
	complete bool
	err      error
	ended    bool
	notify   chan struct{}
	handle   DecodeHandle
}

// BeginAsyncRead starts a progressive read of the window into buf. Validation
// is identical to Read and happens before any decode starts. The driver must
// implement AsyncDriver; otherwise ErrNoAsyncSupport is returned. buf must
// stay valid and unmutated (outside the lock protocol) until EndAsyncRead.
func (d *Dataset) BeginAsyncRead(win Window, buf interface{}, opts ...IOOption) (*AsyncReadRequest, error) {
	win, bufBytes, bands, err := d.prepare(win, buf, applyIOOptions(opts))
	if err != nil {
		return nil, err
	}
	ad, ok := d.drv.(AsyncDriver)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoAsyncSupport, d.drv)
	}

	slots := make(map[int][]int, len(bands))
	physical := make([]int, 0, len(bands))
	for slot, band := range bands {
		if len(slots[band]) == 0 {
			physical = append(physical, band)
		}
		slots[band] = append(slots[band], slot)
	}

	req := &AsyncReadRequest{
		id:     uuid.New(),
		ds:     d,
		win:    win,
		native: d.drv.DataType(),
		buf:    bufBytes,
		slots:  slots,
		state:  StatePending,
		notify: make(chan struct{}, 1),
	}
	handle, err := ad.BeginDecode(win, physical, &requestSink{req})
	if err != nil {
		return nil, fmt.Errorf("%w: starting decode: %v", ErrBackend, err)
	}
	req.handle = handle
	return req, nil
}

// EndAsyncRead cancels any in-flight decode, waits for the backend to stop
// writing into the destination buffer, and releases the request. Safe to call
// in any state, including immediately after BeginAsyncRead and after an
// error; calling it twice is a no-op. The destination buffer is not freed.
func (d *Dataset) EndAsyncRead(req *AsyncReadRequest) {
	req.mu.Lock()
	if req.ended {
		req.mu.Unlock()
		return
	}
	req.ended = true
	handle := req.handle
	req.handle = nil
	// A poller blocked in GetNextUpdatedRegion must see the end now, not
	// when its timer fires.
	req.wake()
	req.mu.Unlock()

	// Cancel outside the lock: the decode goroutine may be blocked on it in
	// a sink call.
	if handle != nil {
		handle.Cancel()
	}
}

// ID returns the request's diagnostic identifier.
func (r *AsyncReadRequest) ID() uuid.UUID { return r.id }

// State returns the current lifecycle state.
func (r *AsyncReadRequest) State() RequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the latched decode error, if any. It is set once the request
// has entered StateError, or after EndAsyncRead on a request that never
// finished (ErrClosed).
func (r *AsyncReadRequest) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.ended && !r.complete {
		return ErrClosed
	}
	return nil
}

// LockBuffer acquires exclusive access to the destination buffer. Every read
// of the buffer while the request is live must happen between LockBuffer and
// UnlockBuffer; the decode side takes the same lock before writing newly
// decoded data. The lock orders buffer contents only, not request state.
func (r *AsyncReadRequest) LockBuffer() { r.mu.Lock() }

// UnlockBuffer releases the buffer lock.
func (r *AsyncReadRequest) UnlockBuffer() { r.mu.Unlock() }

// GetNextUpdatedRegion waits until newly decoded data is available, the read
// finished, a decode error was latched, or timeout elapsed. A timeout is
// reported as StatusPending, never as an error. With StatusUpdate the
// returned region is the full requested window (whole-buffer update
// semantics); consuming the update returns the request to StatePending until
// the backend publishes more. Once the request is complete every further poll
// returns StatusComplete with an empty region.
func (r *AsyncReadRequest) GetNextUpdatedRegion(timeout time.Duration) (Status, Region) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		expired = timer.C
		defer timer.Stop()
	} else {
		// Non-positive timeout: a single non-blocking state check.
		c := make(chan time.Time)
		close(c)
		expired = c
	}

	for {
		r.mu.Lock()
		switch {
		case r.err != nil:
			r.state = StateError
			r.mu.Unlock()
			return StatusError, Region{}
		case r.ended:
			// Polling an ended request: terminal outcome only.
			complete := r.complete
			r.mu.Unlock()
			if complete {
				return StatusComplete, Region{}
			}
			return StatusError, Region{}
		case r.updated:
			r.updated = false
			if r.complete {
				r.state = StateComplete
			} else {
				r.state = StatePending
			}
			region := Region{XOff: r.win.XOff, YOff: r.win.YOff, Width: r.win.Width, Height: r.win.Height}
			r.mu.Unlock()
			return StatusUpdate, region
		case r.complete:
			r.mu.Unlock()
			return StatusComplete, Region{}
		}
		r.mu.Unlock()

		select {
		case <-r.notify:
		case <-expired:
			return StatusPending, Region{}
		}
	}
}

// wake nudges a poller without ever blocking the decode goroutine.
func (r *AsyncReadRequest) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// requestSink adapts an AsyncReadRequest to the DecodeSink the driver calls
// from its decode goroutine.
type requestSink struct {
	req *AsyncReadRequest
}

func (s *requestSink) DeliverLine(band, row, xOff int, native []byte) {
	s.req.deliverLine(band, row, xOff, native)
}

func (s *requestSink) PublishUpdate() {
	s.req.publish(false)
}

func (s *requestSink) DecodeComplete() {
	s.req.publish(true)
}

func (s *requestSink) DecodeFailed(err error) {
	r := s.req
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || r.err != nil || r.complete {
		return
	}
	r.err = fmt.Errorf("%w: %v", ErrBackend, err)
	r.state = StateError
	r.wake()
}

// deliverLine converts one decoded native line segment into the destination
// buffer, under the buffer lock. Late deliveries after cancellation or a
// terminal state are dropped.
func (r *AsyncReadRequest) deliverLine(band, row, xOff int, native []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || r.err != nil || r.complete {
		return
	}
	slots, ok := r.slots[band]
	if !ok {
		return
	}
	rel := row - r.win.YOff
	if rel < 0 || rel >= r.win.Height {
		return
	}
	if r.win.BufHeight == r.win.Height {
		r.placeRow(slots, rel, xOff, native)
		return
	}
	for bufRow := 0; bufRow < r.win.BufHeight; bufRow++ {
		if r.win.srcRow(bufRow) == rel {
			r.placeRow(slots, bufRow, xOff, native)
		}
	}
}

// placeRow writes a native segment starting at absolute column xOff into
// buffer row bufRow of every slot. Must hold r.mu.
func (r *AsyncReadRequest) placeRow(slots []int, bufRow, xOff int, native []byte) {
	win := r.win
	st, dt := convert.Type(r.native), convert.Type(win.Type)
	nsz := r.native.Size()
	segStart, segEnd := xOff, xOff+len(native)/nsz

	if win.BufWidth == win.Width && segStart <= win.XOff && segEnd >= win.XOff+win.Width {
		for _, slot := range slots {
			convert.Convert(r.buf[win.sampleOffset(slot, bufRow, 0):], dt, win.PixelStride,
				native[(win.XOff-segStart)*nsz:], st, nsz, win.Width)
		}
		return
	}
	for col := 0; col < win.BufWidth; col++ {
		src := win.XOff + win.srcCol(col)
		if src < segStart || src >= segEnd {
			continue
		}
		for _, slot := range slots {
			convert.Convert(r.buf[win.sampleOffset(slot, bufRow, col):], dt, win.PixelStride,
				native[(src-segStart)*nsz:], st, nsz, 1)
		}
	}
}

// publish marks a burst boundary; with final it also latches completion.
func (r *AsyncReadRequest) publish(final bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended || r.err != nil {
		return
	}
	if final {
		if r.complete {
			return
		}
		r.complete = true
		if !r.updated {
			r.state = StateComplete
		}
	} else {
		if r.complete {
			return
		}
		r.updated = true
		r.state = StateUpdateAvailable
	}
	r.wake()
}
