package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

func valid(v int) dcf77.Field { return dcf77.Field{Value: v, Valid: true} }

func validMinute() dcf77.Minute {
	return dcf77.Minute{
		Received: time.Date(2026, 10, 16, 12, 37, 0, 0, time.UTC),
		Fields: dcf77.TimeFields{
			Minute: valid(37), Hour: valid(14), Day: valid(16), Weekday: valid(5),
			Month: valid(10), Year: valid(26), DST: valid(1), FrameLen: 59,
		},
	}
}

func TestObserveCycle(t *testing.T) {
	m := New()
	m.ObserveCycle(dcf77.Cycle{Gap: 900, Pulse: 100}, dcf77.EventZero)
	m.ObserveCycle(dcf77.Cycle{Gap: 800, Pulse: 200}, dcf77.EventOne)
	m.ObserveCycle(dcf77.Cycle{Gap: 850, Pulse: 190}, dcf77.EventOne)

	if got := testutil.ToFloat64(m.cycles.WithLabelValues("zero")); got != 1 {
		t.Errorf("zero cycles: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cycles.WithLabelValues("one")); got != 2 {
		t.Errorf("one cycles: got %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.pulseMs); got != 2 {
		t.Errorf("pulse histogram series: got %d, want 2", got)
	}
}

func TestObserveMinuteValid(t *testing.T) {
	m := New()
	minute := validMinute()
	m.ObserveMinute(minute)

	if got := testutil.ToFloat64(m.frames.WithLabelValues(ResultValid)); got != 1 {
		t.Errorf("valid frames: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.frameLen); got != 59 {
		t.Errorf("frame length: got %v, want 59", got)
	}
	if got := testutil.ToFloat64(m.lastValid); got != float64(minute.Received.Unix()) {
		t.Errorf("last valid: got %v", got)
	}
	if got := testutil.CollectAndCount(m.fieldFaults); got != 0 {
		t.Errorf("expected no fault series, got %d", got)
	}
}

func TestObserveMinuteFaults(t *testing.T) {
	m := New()
	minute := validMinute()
	minute.Fields.Day = dcf77.Field{Fault: dcf77.FaultParity}
	minute.Fields.Month = dcf77.Field{Fault: dcf77.FaultParity}
	minute.Fields.DST = dcf77.Field{Fault: dcf77.FaultAmbiguous}
	minute.Fields.FrameLen = 58
	m.ObserveMinute(minute)

	if got := testutil.ToFloat64(m.frames.WithLabelValues(ResultInvalid)); got != 1 {
		t.Errorf("invalid frames: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fieldFaults.WithLabelValues("day", "parity")); got != 1 {
		t.Errorf("day parity faults: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fieldFaults.WithLabelValues("dst", "ambiguous")); got != 1 {
		t.Errorf("dst ambiguous faults: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastValid); got != 0 {
		t.Errorf("last valid should be untouched, got %v", got)
	}
	if got := testutil.ToFloat64(m.frameLen); got != 58 {
		t.Errorf("frame length: got %v, want 58", got)
	}
}

func TestGauges(t *testing.T) {
	m := New()
	m.ObserveDropped()
	m.SetSynced(true)
	m.SetMQTTConnected(true)
	m.SetMQTTConnected(false)
	m.SetMQTTBuffered(4)

	if got := testutil.ToFloat64(m.frames.WithLabelValues(ResultDropped)); got != 1 {
		t.Errorf("dropped frames: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.synced); got != 1 {
		t.Errorf("synced: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.mqttConnected); got != 0 {
		t.Errorf("mqtt connected: got %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.mqttBuffered); got != 4 {
		t.Errorf("mqtt buffered: got %v, want 4", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle(dcf77.Cycle{Gap: 1900, Pulse: 100}, dcf77.EventMinuteMark)
	m.SetSynced(true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`dcf77_cycles_total{event="minute_mark"} 1`,
		`dcf77_synced 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in exposition", want)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SetSynced(true)
	if got := testutil.ToFloat64(b.synced); got != 0 {
		t.Errorf("second instance should not see first's state, got %v", got)
	}
}
