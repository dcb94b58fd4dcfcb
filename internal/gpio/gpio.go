// Package gpio provides access to the demodulated DCF77 signal line with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line reads the instantaneous level of the receiver output.
type Line interface {
	// Level returns true while the carrier is reduced (the second pulse is active).
	Level() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Indicator drives an LED that mirrors the received pulses.
type Indicator interface {
	Set(on bool) error
	Close() error
}

// Default pin definitions (BCM numbering)
const (
	DefaultPinSignal = 17
	DefaultChip      = "gpiochip0"
)

// Options configures the signal line.
type Options struct {
	Chip string
	Pin  int
	// Invert treats a low line as the active pulse (open-collector receivers).
	Invert bool
	// PullUp biases the line high instead of low.
	PullUp bool
}

// NopIndicator is used when no LED pin is configured.
type NopIndicator struct{}

func (NopIndicator) Set(bool) error { return nil }
func (NopIndicator) Close() error   { return nil }
