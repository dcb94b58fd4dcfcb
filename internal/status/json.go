package status

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Synced        bool         `json:"synced"`
	Second        int          `json:"second"`
	Current       *MinuteJSON  `json:"current,omitempty"`
	LastValid     *MinuteJSON  `json:"last_valid,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MinuteJSON is a decoded minute as shown on the display.
type MinuteJSON struct {
	Received string            `json:"received"`
	Time     string            `json:"time"`
	Date     string            `json:"date"`
	Weekday  string            `json:"weekday"`
	Zone     string            `json:"zone"`
	Valid    bool              `json:"valid"`
	FrameLen int               `json:"frame_len"`
	Faults   map[string]string `json:"faults,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Buffered  int    `json:"buffered"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of receiver counters.
type CountsJSON struct {
	Cycles      int            `json:"cycles"`
	Frames      int            `json:"frames"`
	ValidFrames int            `json:"valid_frames"`
	Dropped     int            `json:"dropped"`
	Faults      map[string]int `json:"faults,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pin         int    `json:"pin"`
	Invert      bool   `json:"invert"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

// NewMinuteJSON converts a decoded minute for JSON output.
func NewMinuteJSON(m *dcf77.Minute) *MinuteJSON {
	if m == nil {
		return nil
	}
	d := Render(m.Fields)
	out := &MinuteJSON{
		Received: m.Received.UTC().Format(time.RFC3339),
		Time:     d.Time,
		Date:     d.Date,
		Weekday:  d.Weekday,
		Zone:     d.Zone,
		Valid:    m.Fields.Valid(),
		FrameLen: m.Fields.FrameLen,
	}
	for _, nf := range m.Fields.Fields() {
		if nf.Fault == dcf77.FaultNone {
			continue
		}
		if out.Faults == nil {
			out.Faults = make(map[string]string)
		}
		out.Faults[nf.Name] = string(nf.Fault)
	}
	return out
}

func countsJSON(c dcf77.Counts) CountsJSON {
	out := CountsJSON{
		Cycles:      c.Cycles,
		Frames:      c.Frames,
		ValidFrames: c.ValidFrames,
		Dropped:     c.Dropped,
	}
	for k, v := range c.Faults {
		if out.Faults == nil {
			out.Faults = make(map[string]int)
		}
		out.Faults[string(k)] = v
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Synced:        snap.Synced,
		Second:        snap.Second,
		Current:       NewMinuteJSON(snap.Current),
		LastValid:     NewMinuteJSON(snap.LastValid),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Buffered: snap.MQTTBuffered, Broker: snap.Config.Broker},
		Counts:        countsJSON(snap.Counts),
		Config: ConfigJSON{
			Pin:         snap.Config.Pin,
			Invert:      snap.Config.Invert,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FaultNames returns the fault keys of c in a stable order.
func FaultNames(c dcf77.Counts) []string {
	names := make([]string, 0, len(c.Faults))
	for k := range c.Faults {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
