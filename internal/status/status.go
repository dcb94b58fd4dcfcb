// Package status provides a thread-safe status tracker for the dcf77-clock daemon.
// It is read by the HTTP handlers and the live websocket view, and it is the
// only place that remembers the last valid minute.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Pin         int
	Invert      bool
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Synced        bool
	Second        int
	Current       *dcf77.Minute
	LastValid     *dcf77.Minute
	Counts        dcf77.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTBuffered  int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets receiver progress and counters.
// Called from runLoop after every measured second.
func (t *Tracker) Update(synced bool, second int, counts dcf77.Counts) {
	t.mu.Lock()
	t.snap.Synced = synced
	t.snap.Second = second
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMinute records a decoded minute. Fully valid minutes also replace LastValid.
func (t *Tracker) SetMinute(m dcf77.Minute) {
	t.mu.Lock()
	t.snap.Current = &m
	if m.Fields.Valid() {
		lv := m
		t.snap.LastValid = &lv
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBuffered sets the number of messages waiting for a connection.
func (t *Tracker) SetMQTTBuffered(n int) {
	t.mu.Lock()
	t.snap.MQTTBuffered = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
