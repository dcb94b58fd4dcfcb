// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// Topic is the MQTT topic for decoded minutes.
const Topic = "time/dcf77/clock/minutes"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "time/dcf77/clock/system"

// Publisher publishes decoded minutes to MQTT.
type Publisher interface {
	// Publish sends a decoded minute to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(minute dcf77.Minute) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// BufferStatus reports how many messages are held back while offline.
type BufferStatus interface {
	Buffered() int
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	DCF77 MinutePayload `json:"dcf77"`
}

// MinutePayload contains one decoded minute.
type MinutePayload struct {
	Timestamp string        `json:"timestamp"`
	Time      string        `json:"time,omitempty"`
	Valid     bool          `json:"valid"`
	Zone      string        `json:"zone,omitempty"`
	Weekday   string        `json:"weekday,omitempty"`
	FrameLen  int           `json:"frame_len"`
	Fields    FieldsPayload `json:"fields"`
}

// FieldsPayload lists every decoded field.
type FieldsPayload struct {
	Minute  FieldPayload `json:"minute"`
	Hour    FieldPayload `json:"hour"`
	Day     FieldPayload `json:"day"`
	Weekday FieldPayload `json:"weekday"`
	Month   FieldPayload `json:"month"`
	Year    FieldPayload `json:"year"`
	DST     FieldPayload `json:"dst"`
}

// FieldPayload is a single field. Value is null when the field is invalid.
type FieldPayload struct {
	Value *int   `json:"value"`
	Valid bool   `json:"valid"`
	Fault string `json:"fault,omitempty"`
}

func fieldPayload(f dcf77.Field) FieldPayload {
	p := FieldPayload{Valid: f.Valid, Fault: string(f.Fault)}
	if f.Valid {
		v := f.Value
		p.Value = &v
	}
	return p
}

// FormatPayload creates the JSON payload for a decoded minute.
func FormatPayload(m dcf77.Minute) ([]byte, error) {
	tf := m.Fields
	p := MinutePayload{
		Timestamp: m.Received.UTC().Format(time.RFC3339),
		Valid:     tf.Valid(),
		Zone:      string(tf.Zone()),
		Weekday:   tf.WeekdayName(),
		FrameLen:  tf.FrameLen,
		Fields: FieldsPayload{
			Minute:  fieldPayload(tf.Minute),
			Hour:    fieldPayload(tf.Hour),
			Day:     fieldPayload(tf.Day),
			Weekday: fieldPayload(tf.Weekday),
			Month:   fieldPayload(tf.Month),
			Year:    fieldPayload(tf.Year),
			DST:     fieldPayload(tf.DST),
		},
	}
	if ts, ok := tf.Time(); ok {
		p.Time = ts.Format(time.RFC3339)
	}
	return json.Marshal(Payload{DCF77: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
