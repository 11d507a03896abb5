// Package raster provides a format-agnostic access layer for reading and
// writing rectangular windows of multi-band pixel data. Format backends plug
// in through the Driver interface; callers work with Dataset and Band handles
// and typed Go slices. Backends whose decoders deliver data incrementally can
// additionally implement AsyncDriver, which enables the progressive read
// protocol (BeginAsyncRead / GetNextUpdatedRegion / EndAsyncRead).
package raster

import "errors"

// Common errors
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfRange      = errors.New("window outside raster extent")
	ErrBackend         = errors.New("backend failure")
	ErrCancelled       = errors.New("operation cancelled")
	ErrClosed          = errors.New("request already ended")
	ErrNoAsyncSupport  = errors.New("driver does not support progressive reads")
)
