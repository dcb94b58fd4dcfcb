// Package pulse measures the DCF77 second pulses by polling the signal line
// against the millisecond counter.
package pulse

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
	"github.com/sweeney/dcf77-clock/internal/gpio"
	"github.com/sweeney/dcf77-clock/internal/tick"
)

// Meter times level transitions on the signal line.
// Measuring blocks the caller for the whole second being measured.
type Meter struct {
	line  gpio.Line
	clock tick.Source
	led   gpio.Indicator
	// poll is the pause between reads; 0 spins.
	poll time.Duration

	// lastFall is the count at the end of the previous pulse, valid when
	// haveFall is set. The next gap is timed from it.
	lastFall uint32
	haveFall bool

	ledFailed bool
}

// NewMeter creates a meter. A nil led disables the pulse indicator.
func NewMeter(line gpio.Line, clock tick.Source, led gpio.Indicator, poll time.Duration) *Meter {
	if led == nil {
		led = gpio.NopIndicator{}
	}
	return &Meter{line: line, clock: clock, led: led, poll: poll}
}

// Measure waits out the gap before the next pulse and then the pulse itself.
// The gap runs from the falling edge seen by the previous call, so time the
// caller spends between calls still counts towards it.
// It returns ctx.Err() if ctx is done while waiting.
func (m *Meter) Measure(ctx context.Context) (dcf77.Cycle, error) {
	gapStart := m.clock.Millis()
	if m.haveFall {
		gapStart = m.lastFall
	}
	m.haveFall = false

	rise, err := m.await(ctx, true)
	if err != nil {
		return dcf77.Cycle{}, fmt.Errorf("measure gap: %w", err)
	}

	m.setLED(true)
	fall, err := m.await(ctx, false)
	m.setLED(false)
	if err != nil {
		return dcf77.Cycle{}, fmt.Errorf("measure pulse: %w", err)
	}
	m.lastFall, m.haveFall = fall, true

	return dcf77.Cycle{Gap: tick.Since(gapStart, rise), Pulse: tick.Since(rise, fall)}, nil
}

// await polls until the line reaches level and returns the count at that read.
func (m *Meter) await(ctx context.Context, level bool) (uint32, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		v, err := m.line.Level()
		if err != nil {
			return 0, err
		}
		if v == level {
			return m.clock.Millis(), nil
		}
		if m.poll > 0 {
			time.Sleep(m.poll)
		}
	}
}

// setLED drives the indicator. The first failure is logged; later ones are
// dropped until the LED works again.
func (m *Meter) setLED(on bool) {
	if err := m.led.Set(on); err != nil {
		if !m.ledFailed {
			log.Printf("pulse: led: %v", err)
			m.ledFailed = true
		}
		return
	}
	m.ledFailed = false
}
