package internal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
	"github.com/sweeney/dcf77-clock/internal/gpio"
	"github.com/sweeney/dcf77-clock/internal/mqtt"
	"github.com/sweeney/dcf77-clock/internal/pulse"
	"github.com/sweeney/dcf77-clock/internal/status"
	"github.com/sweeney/dcf77-clock/internal/tick"
)

type wallTime struct {
	minute, hour, day, weekday, month, year int
	summer                                  bool
}

func putBCD(bits []bool, start, width, v int) {
	units, tens := v%10, v/10
	for i := 0; i < 4; i++ {
		bits[start+i] = units>>i&1 == 1
	}
	for i := 0; i < width-4; i++ {
		bits[start+4+i] = tens>>i&1 == 1
	}
}

func putParity(bits []bool, start, end int) {
	n := 0
	for i := start; i <= end; i++ {
		if bits[i] {
			n++
		}
	}
	bits[end+1] = n%2 == 1
}

// encode returns the 59 transmitted bits for w.
func encode(w wallTime) []bool {
	bits := make([]bool, 59)
	bits[17] = w.summer
	bits[18] = !w.summer
	bits[20] = true
	putBCD(bits, 21, 7, w.minute)
	putParity(bits, 21, 27)
	putBCD(bits, 29, 6, w.hour)
	putParity(bits, 29, 34)
	putBCD(bits, 36, 6, w.day)
	for i := 0; i < 3; i++ {
		bits[42+i] = w.weekday>>i&1 == 1
	}
	putBCD(bits, 45, 5, w.month)
	putBCD(bits, 50, 8, w.year)
	putParity(bits, 36, 57)
	return bits
}

// signal builds line samples (1 sample = 1 ms) for a run of seconds.
type signal struct {
	samples []gpio.Sample
	cycles  int
}

func (s *signal) second(one, minuteMark bool) {
	gap, width := 900, 100
	if one {
		gap, width = 800, 200
	}
	if minuteMark {
		gap += 1000
	}
	s.samples = append(s.samples, gpio.Sample{High: false, Count: gap}, gpio.Sample{High: true, Count: width})
	s.cycles++
}

func (s *signal) leadIn(n int) {
	for i := 0; i < n; i++ {
		s.second(false, false)
	}
}

func (s *signal) minute(bits []bool) {
	for i, b := range bits {
		s.second(b, i == 0)
	}
}

// pipeline wires the real meter and receiver to fake I/O, like the daemon loop.
type pipeline struct {
	line     *gpio.FakeLine
	led      *gpio.FakeIndicator
	meter    *pulse.Meter
	receiver *dcf77.Receiver
	pub      *mqtt.FakePublisher
	tracker  *status.Tracker
	start    time.Time
}

func newPipeline(s *signal) *pipeline {
	// Trailing low level ends the last pulse.
	samples := append(s.samples, gpio.Sample{High: false, Count: 10})

	clock := tick.NewFake(0)
	line := gpio.NewFakeLine(samples)
	line.OnRead = func() { clock.Advance(1) }
	led := &gpio.FakeIndicator{}
	start := time.Date(2026, 10, 16, 12, 35, 0, 0, time.UTC)

	return &pipeline{
		line:     line,
		led:      led,
		meter:    pulse.NewMeter(line, clock, led, 0),
		receiver: dcf77.NewReceiver(start),
		pub:      mqtt.NewFakePublisher(),
		tracker:  status.NewTracker(start, status.Config{}),
		start:    start,
	}
}

func (p *pipeline) run(t *testing.T, cycles int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < cycles; i++ {
		c, err := p.meter.Measure(ctx)
		if err != nil {
			t.Fatalf("cycle %d: measure: %v", i, err)
		}
		now := p.start.Add(time.Duration(i+1) * time.Second)
		minute, _ := p.receiver.Process(c, now)
		if minute != nil {
			p.tracker.SetMinute(*minute)
			if err := p.pub.Publish(*minute); err != nil {
				t.Fatalf("cycle %d: publish: %v", i, err)
			}
		}
		p.tracker.Update(p.receiver.IsSynced(), p.receiver.Second(), p.receiver.CountsSnapshot())
	}
}

func summer(minute int) wallTime {
	return wallTime{minute: minute, hour: 14, day: 16, weekday: 5, month: 10, year: 26, summer: true}
}

// TestIntegrationFullFlow tests the complete flow from the GPIO line to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	s := &signal{}
	s.leadIn(12)
	s.minute(encode(summer(36)))
	s.minute(encode(summer(37)))
	s.second(false, true)

	p := newPipeline(s)
	p.run(t, s.cycles)

	if len(p.pub.Minutes) != 2 {
		t.Fatalf("expected 2 minutes, got %d", len(p.pub.Minutes))
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(p.pub.Payloads[1], &parsed); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if parsed.DCF77.Time != "2026-10-16T14:37:00+02:00" {
		t.Errorf("time: got %q", parsed.DCF77.Time)
	}
	if !parsed.DCF77.Valid || parsed.DCF77.Zone != "MESZ" || parsed.DCF77.Weekday != "FRI" {
		t.Errorf("payload: got %+v", parsed.DCF77)
	}

	snap := p.tracker.Snapshot()
	if snap.LastValid == nil {
		t.Fatal("expected a last valid minute")
	}
	if d := status.Render(snap.LastValid.Fields); d.String() != "FRI 16.10.26 14:37 MESZ" {
		t.Errorf("display: got %q", d.String())
	}
	if snap.Counts.Dropped != 1 {
		t.Errorf("expected the joined-mid-minute frame dropped, got %d", snap.Counts.Dropped)
	}
	if snap.Counts.Cycles != s.cycles {
		t.Errorf("cycles: got %d, want %d", snap.Counts.Cycles, s.cycles)
	}

	// LED on and off once per measured second.
	if len(p.led.States) != 2*s.cycles {
		t.Errorf("LED transitions: got %d, want %d", len(p.led.States), 2*s.cycles)
	}
}

func TestIntegrationNothingBeforeFirstMinuteMark(t *testing.T) {
	s := &signal{}
	s.leadIn(45)

	p := newPipeline(s)
	p.run(t, s.cycles)

	if len(p.pub.Minutes) != 0 {
		t.Errorf("expected no minutes before sync, got %d", len(p.pub.Minutes))
	}
	if p.tracker.Snapshot().Synced {
		t.Error("expected not synced")
	}
}

func TestIntegrationWinterTime(t *testing.T) {
	w := wallTime{minute: 5, hour: 0, day: 1, weekday: 4, month: 1, year: 26}
	s := &signal{}
	s.second(false, true)
	s.minute(encode(w))
	s.second(false, true)

	p := newPipeline(s)
	p.run(t, s.cycles)

	if len(p.pub.Minutes) != 1 {
		t.Fatalf("expected 1 minute, got %d", len(p.pub.Minutes))
	}
	f := p.pub.Minutes[0].Fields
	ts, ok := f.Time()
	if !ok {
		t.Fatalf("expected a composable time: %+v", f)
	}
	if want := time.Date(2025, 12, 31, 23, 5, 0, 0, time.UTC); !ts.Equal(want) {
		t.Errorf("time: got %v, want %v", ts.UTC(), want)
	}
	if f.Zone() != dcf77.ZoneMEZ {
		t.Errorf("zone: got %q, want MEZ", f.Zone())
	}
}

func TestIntegrationTruncatedMinute(t *testing.T) {
	s := &signal{}
	s.second(false, true)
	s.minute(encode(summer(36))[:40])
	s.second(false, true)

	p := newPipeline(s)
	p.run(t, s.cycles)

	if len(p.pub.Minutes) != 1 {
		t.Fatalf("expected 1 minute, got %d", len(p.pub.Minutes))
	}
	f := p.pub.Minutes[0].Fields
	if f.FrameLen != 40 {
		t.Errorf("FrameLen: got %d, want 40", f.FrameLen)
	}
	if !f.Minute.Valid || f.Minute.Value != 36 || !f.Hour.Valid {
		t.Errorf("time should decode from a truncated frame: %+v %+v", f.Minute, f.Hour)
	}
	if f.Day.Fault != dcf77.FaultIncomplete || f.Year.Fault != dcf77.FaultIncomplete {
		t.Errorf("expected INCOMPLETE date, got day=%q year=%q", f.Day.Fault, f.Year.Fault)
	}
	if p.tracker.Snapshot().LastValid != nil {
		t.Error("a truncated minute must not become the last valid minute")
	}
	if d := status.Render(f); d.Date != "--.--.--" || d.Time != "14:36" {
		t.Errorf("display: got %+v", d)
	}
}

func TestIntegrationLeapSecondMinute(t *testing.T) {
	bits := append(encode(summer(59)), false)
	s := &signal{}
	s.second(false, true)
	s.minute(bits)
	s.second(false, true)

	p := newPipeline(s)
	p.run(t, s.cycles)

	if len(p.pub.Minutes) != 1 {
		t.Fatalf("expected 1 minute, got %d", len(p.pub.Minutes))
	}
	f := p.pub.Minutes[0].Fields
	if f.FrameLen != 60 {
		t.Errorf("FrameLen: got %d, want 60", f.FrameLen)
	}
	if !f.Valid() {
		t.Errorf("leap-second minute should decode: %+v", f)
	}
}

func TestIntegrationOverlongMinuteDoesNotOverflow(t *testing.T) {
	bits := append(encode(summer(12)), make([]bool, 10)...)
	s := &signal{}
	s.second(false, true)
	s.minute(bits)
	s.second(false, true)
	s.minute(encode(summer(14)))
	s.second(false, true)

	p := newPipeline(s)
	p.run(t, s.cycles)

	if len(p.pub.Minutes) != 2 {
		t.Fatalf("expected 2 minutes, got %d", len(p.pub.Minutes))
	}
	if got := p.pub.Minutes[0].Fields.FrameLen; got != 60 {
		t.Errorf("overlong FrameLen: got %d, want 60", got)
	}
	if !p.pub.Minutes[1].Fields.Valid() || p.pub.Minutes[1].Fields.Minute.Value != 14 {
		t.Errorf("the next minute should decode cleanly: %+v", p.pub.Minutes[1].Fields)
	}
}

func TestIntegrationStatusJSON(t *testing.T) {
	s := &signal{}
	s.second(false, true)
	s.minute(encode(summer(36)))
	s.second(false, true)

	p := newPipeline(s)
	p.run(t, s.cycles)

	var sj status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(p.tracker.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Current == nil || sj.Status.Current.Time != "14:36" {
		t.Errorf("Current: got %+v", sj.Status.Current)
	}
	if sj.Status.Counts.ValidFrames != 1 {
		t.Errorf("ValidFrames: got %d, want 1", sj.Status.Counts.ValidFrames)
	}
}
