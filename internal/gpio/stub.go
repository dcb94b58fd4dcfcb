//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// NewRealLine returns an error on non-Linux platforms.
func NewRealLine(Options) (*RealLine, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (r *RealLine) Level() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}

// RealIndicator is not available on non-Linux platforms.
type RealIndicator struct{}

// NewRealIndicator returns an error on non-Linux platforms.
func NewRealIndicator(string, int) (*RealIndicator, error) {
	return nil, errUnsupported
}

func (r *RealIndicator) Set(bool) error { return errUnsupported }
func (r *RealIndicator) Close() error   { return nil }
