package light

import "errors"

var (
	// ErrFrameSize is returned by Show when a frame's length differs from the strip.
	ErrFrameSize = errors.New("light: frame size does not match pixel count")

	// ErrClosed is returned by Show after Close.
	ErrClosed = errors.New("light: device closed")
)
