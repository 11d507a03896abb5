package raster

// Driver is the capability a format backend provides to the access layer:
// extent and band bookkeeping plus single-line transfers against native
// storage. Line buffers are native-packed samples of the driver's DataType;
// the access layer performs all type conversion and stride handling.
//
// Band indices are 1-based throughout, matching the public API.
type Driver interface {
	Size() (width, height int)
	BandCount() int
	DataType() DataType

	// ReadLine copies width samples of row starting at xOff into dst, which
	// holds exactly width native-packed samples.
	ReadLine(band, row, xOff, width int, dst []byte) error

	// WriteLine stores width samples from src into row starting at xOff. The
	// driver must make the line durable or buffered before returning.
	WriteLine(band, row, xOff, width int, src []byte) error
}

// DecodeSink receives decoded data from a backend's incremental decoder. The
// access layer implements it; drivers call it, possibly from a decode
// goroutine the caller never sees. All methods are safe for that goroutine to
// call at any time, including after cancellation (late calls are dropped).
type DecodeSink interface {
	// DeliverLine hands over one decoded native-packed line segment of the
	// given physical band. row and xOff are in source pixel coordinates; the
	// sink clips the segment against the requested window. The sink copies
	// out of native before returning; the driver may reuse the slice.
	DeliverLine(band, row, xOff int, native []byte)

	// PublishUpdate marks a burst boundary: everything delivered so far
	// should become visible to the polling side as one update.
	PublishUpdate()

	// DecodeComplete signals that all data for the request has been
	// delivered and no further sink calls will follow.
	DecodeComplete()

	// DecodeFailed latches a terminal decode error. No further sink calls
	// may follow.
	DecodeFailed(err error)
}

// DecodeHandle controls one in-flight incremental decode.
type DecodeHandle interface {
	// Cancel requests the decode to stop and blocks until the backend has
	// reached a safe stopping point, after which no further sink calls will
	// be made.
	Cancel()
}

// AsyncDriver is the optional progressive-decode capability. Backends that
// cannot decode incrementally simply do not implement it; they are still
// fully usable through the synchronous contract.
type AsyncDriver interface {
	Driver

	// BeginDecode starts an incremental decode of the given window for the
	// given physical bands. The window is already validated and defaulted.
	// Drivers that cannot run decodes concurrently must serialize internally.
	BeginDecode(win Window, bands []int, sink DecodeSink) (DecodeHandle, error)
}
