//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealLine reads the signal from actual hardware using Linux GPIO character device.
type RealLine struct {
	line *gpiocdev.Line
}

// NewRealLine requests the signal pin as an input.
func NewRealLine(opts Options) (*RealLine, error) {
	chip := opts.Chip
	if chip == "" {
		chip = DefaultChip
	}

	lineOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if opts.PullUp {
		lineOpts[1] = gpiocdev.WithPullUp
	}
	if opts.Invert {
		lineOpts = append(lineOpts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, opts.Pin, lineOpts...)
	if err != nil {
		return nil, fmt.Errorf("request signal pin %d on %s: %w", opts.Pin, chip, err)
	}
	return &RealLine{line: line}, nil
}

// Level returns the logical level; active-low wiring is already accounted for.
func (r *RealLine) Level() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read signal pin: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// before closing to ensure clean state for system shutdown/reboot.
func (r *RealLine) Close() error {
	var errs []error
	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure signal pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close signal pin: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealIndicator drives an LED pin.
type RealIndicator struct {
	line *gpiocdev.Line
}

// NewRealIndicator requests pin as an output, initially off.
func NewRealIndicator(chip string, pin int) (*RealIndicator, error) {
	if chip == "" {
		chip = DefaultChip
	}
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request led pin %d on %s: %w", pin, chip, err)
	}
	return &RealIndicator{line: line}, nil
}

// Set switches the LED.
func (r *RealIndicator) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return r.line.SetValue(v)
}

// Close turns the LED off and returns the pin to an input with pull-down.
func (r *RealIndicator) Close() error {
	var errs []error
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure led pin: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close led pin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
