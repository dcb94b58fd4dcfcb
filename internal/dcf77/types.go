// Package dcf77 contains the pure time-code decoding logic for the DCF77 signal.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Durations arrive as millisecond counts and wall time is always injectable.
package dcf77

import "time"

// BitEvent is the classification of one measured second.
type BitEvent string

const (
	EventZero       BitEvent = "ZERO"
	EventOne        BitEvent = "ONE"
	EventMinuteMark BitEvent = "MINUTE_MARK"
)

// Cycle is one measured second of the demodulated signal, in milliseconds.
type Cycle struct {
	// Gap is how long the line stayed released before the pulse.
	Gap uint32
	// Pulse is how long the line was held active.
	Pulse uint32
}

// Fault explains why a decoded field is invalid.
type Fault string

const (
	FaultNone       Fault = ""
	FaultParity     Fault = "PARITY"
	FaultRange      Fault = "RANGE"
	FaultAmbiguous  Fault = "AMBIGUOUS"
	FaultIncomplete Fault = "INCOMPLETE"
)

// Field is a single decoded value together with its validity.
// Value is meaningless when Valid is false.
type Field struct {
	Value int
	Valid bool
	Fault Fault
}

// Zone is the transmitted time zone.
type Zone string

const (
	ZoneUnknown Zone = ""
	ZoneMEZ     Zone = "MEZ"  // winter time, UTC+1
	ZoneMESZ    Zone = "MESZ" // summer time, UTC+2
)

// TimeFields is the result of decoding one minute frame.
// It is created fresh for every frame and never merged with earlier results.
type TimeFields struct {
	Minute  Field
	Hour    Field
	Day     Field
	Weekday Field
	Month   Field
	Year    Field // two digits, 0-99

	// DST is Valid with Value 1 for summer time and 0 for winter time.
	DST Field

	// FrameLen is the number of slots that were filled before the minute mark.
	FrameLen int
}

// Counts tracks receiver activity since startup.
type Counts struct {
	Cycles      int
	Frames      int
	ValidFrames int
	Dropped     int // frames discarded before the first minute mark aligned the receiver
	Faults      map[Fault]int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}

// Minute is a decoded frame as handed to display collaborators.
type Minute struct {
	// Received is the local wall time the minute mark was observed.
	Received time.Time
	Fields   TimeFields
}
