package raster

// IOOption configures a windowed transfer or progressive read.
type IOOption func(*ioOptions)

type ioOptions struct {
	bands     []int
	winWidth  int
	winHeight int
}

func applyIOOptions(opts []IOOption) *ioOptions {
	o := &ioOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithBands selects which bands take part in a Dataset transfer, in buffer
// slot order. Indices are 1-based; the same band may appear more than once.
// Without this option every band is transferred in order. Band-level
// transfers ignore it.
func WithBands(bands ...int) IOOption {
	return func(o *ioOptions) {
		o.bands = bands
	}
}

// WithWindowSize overrides the source window size for Band.Read and
// Band.Write, enabling nearest-neighbor replication or decimation when it
// differs from the buffer size. Without it the window matches the buffer.
func WithWindowSize(width, height int) IOOption {
	return func(o *ioOptions) {
		o.winWidth = width
		o.winHeight = height
	}
}
