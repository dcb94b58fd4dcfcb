package pulse

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
	"github.com/sweeney/dcf77-clock/internal/gpio"
	"github.com/sweeney/dcf77-clock/internal/tick"
)

// newSignal returns a line where every read takes one simulated millisecond.
func newSignal(start uint32, samples []gpio.Sample) (*gpio.FakeLine, *tick.Fake) {
	clock := tick.NewFake(start)
	line := gpio.NewFakeLine(samples)
	line.OnRead = func() { clock.Advance(1) }
	return line, clock
}

func TestMeasureCycles(t *testing.T) {
	line, clock := newSignal(0, []gpio.Sample{
		{High: false, Count: 850},
		{High: true, Count: 100},
		{High: false, Count: 1800},
		{High: true, Count: 200},
		{High: false, Count: 800},
		{High: true, Count: 121},
		{High: false, Count: 10},
	})
	m := NewMeter(line, clock, nil, 0)
	ctx := context.Background()

	// The read that ends each phase is charged to it.
	want := []dcf77.Cycle{
		{Gap: 851, Pulse: 100},
		{Gap: 1800, Pulse: 200},
		{Gap: 800, Pulse: 121},
	}
	wantEvents := []dcf77.BitEvent{dcf77.EventZero, dcf77.EventMinuteMark, dcf77.EventOne}

	for i, w := range want {
		got, err := m.Measure(ctx)
		if err != nil {
			t.Fatalf("cycle %d: unexpected error: %v", i, err)
		}
		if got != w {
			t.Errorf("cycle %d: got %+v, want %+v", i, got, w)
		}
		if ev := dcf77.Classify(got); ev != wantEvents[i] {
			t.Errorf("cycle %d: classified %s, want %s", i, ev, wantEvents[i])
		}
	}
}

func TestMeasureAcrossCounterWrap(t *testing.T) {
	line, clock := newSignal(math.MaxUint32-500, []gpio.Sample{
		{High: false, Count: 1},
		{High: true, Count: 1},
		{High: false, Count: 1300},
		{High: true, Count: 150},
		{High: false, Count: 5},
	})
	m := NewMeter(line, clock, nil, 0)

	if _, err := m.Measure(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Gap != 1300 || got.Pulse != 150 {
		t.Errorf("expected {1300 150} across wrap, got %+v", got)
	}
}

func TestMeasureDrivesIndicator(t *testing.T) {
	line, clock := newSignal(0, []gpio.Sample{
		{High: false, Count: 10},
		{High: true, Count: 10},
		{High: false, Count: 10},
	})
	led := &gpio.FakeIndicator{}
	m := NewMeter(line, clock, led, 0)

	if _, err := m.Measure(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(led.States) != 2 || !led.States[0] || led.States[1] {
		t.Errorf("expected LED on then off, got %v", led.States)
	}
}

func TestMeasureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	line, clock := newSignal(0, []gpio.Sample{{High: false}})
	reads := 0
	line.OnRead = func() {
		clock.Advance(1)
		reads++
		if reads == 5000 {
			cancel()
		}
	}
	m := NewMeter(line, clock, nil, 0)

	_, err := m.Measure(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMeasureReadError(t *testing.T) {
	line, clock := newSignal(0, []gpio.Sample{{High: false}})
	line.ReadError = errors.New("line gone")
	m := NewMeter(line, clock, nil, 0)

	_, err := m.Measure(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, line.ReadError) {
		t.Errorf("expected wrapped read error, got %v", err)
	}
}

func TestMeasureGapIncludesTimeBetweenCalls(t *testing.T) {
	line, clock := newSignal(0, []gpio.Sample{
		{High: false, Count: 10},
		{High: true, Count: 100},
		{High: false, Count: 1000},
		{High: true, Count: 100},
		{High: false, Count: 10},
	})
	m := NewMeter(line, clock, nil, 0)

	if _, err := m.Measure(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The caller is busy for 300ms after the pulse ends.
	clock.Advance(300)

	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Gap != 1300 {
		t.Errorf("expected gap 1300 from the previous falling edge, got %d", got.Gap)
	}
	if ev := dcf77.Classify(got); ev != dcf77.EventMinuteMark {
		t.Errorf("expected MINUTE_MARK, got %s", ev)
	}
}

func TestMeasureAfterErrorTimesFromCall(t *testing.T) {
	line, clock := newSignal(0, []gpio.Sample{
		{High: false, Count: 10},
		{High: true, Count: 100},
		{High: false, Count: 500},
		{High: true, Count: 100},
		{High: false, Count: 10},
	})
	m := NewMeter(line, clock, nil, 0)

	if _, err := m.Measure(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Measure(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	clock.Advance(5000)
	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Gap != 500 {
		t.Errorf("expected gap timed from the call after an error, got %d", got.Gap)
	}
}

func TestMeasureLogsIndicatorFailureOnce(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	line, clock := newSignal(0, []gpio.Sample{
		{High: false, Count: 10},
		{High: true, Count: 10},
		{High: false, Count: 10},
		{High: true, Count: 10},
		{High: false, Count: 10},
	})
	led := &gpio.FakeIndicator{SetError: errors.New("led pin busy")}
	m := NewMeter(line, clock, led, 0)

	for i := 0; i < 2; i++ {
		if _, err := m.Measure(context.Background()); err != nil {
			t.Fatalf("cycle %d: indicator failure must not fail measuring: %v", i, err)
		}
	}
	if n := strings.Count(buf.String(), "led pin busy"); n != 1 {
		t.Errorf("expected the indicator error logged once, got %d:\n%s", n, buf.String())
	}
}

// wallLine is a signal line driven by real time: released until pulseAt,
// active until pulseEnd, released again afterwards.
type wallLine struct {
	start             time.Time
	pulseAt, pulseEnd time.Duration
}

func (w *wallLine) Level() (bool, error) {
	d := time.Since(w.start)
	return d >= w.pulseAt && d < w.pulseEnd, nil
}

func (w *wallLine) Close() error { return nil }

func TestMeasureWithRealCounterDetectsMinuteMark(t *testing.T) {
	if testing.Short() {
		t.Skip("runs for two seconds of real time")
	}
	line := &wallLine{start: time.Now(), pulseAt: 1800 * time.Millisecond, pulseEnd: 2000 * time.Millisecond}
	m := NewMeter(line, tick.NewCounter(), nil, 0)

	got, err := m.Measure(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Gap < 1750 || got.Gap > 1850 {
		t.Errorf("expected gap near 1800ms, got %d", got.Gap)
	}
	if got.Pulse < 150 || got.Pulse > 250 {
		t.Errorf("expected pulse near 200ms, got %d", got.Pulse)
	}
	if ev := dcf77.Classify(got); ev != dcf77.EventMinuteMark {
		t.Errorf("expected MINUTE_MARK, got %s", ev)
	}
}
