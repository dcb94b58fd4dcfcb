package dcf77

// Thresholds for the DCF77 second pulses, in milliseconds.
const (
	// PulseThresholdMs is the longest pulse still read as a zero (nominal 100ms vs 200ms).
	PulseThresholdMs = 120
	// MinuteMarkThresholdMs is the longest gap that is still an ordinary second.
	// Second 59 carries no pulse, so the gap before second 0 is roughly 1.8s.
	MinuteMarkThresholdMs = 1200
)

// ClassifyPulse maps a pulse length to a data bit.
// There is no rejection bucket: a noisy sample lands in whichever side it falls.
func ClassifyPulse(pulseMs uint32) BitEvent {
	if pulseMs > PulseThresholdMs {
		return EventOne
	}
	return EventZero
}

// Classify maps a measured second to an event. A gap longer than the
// minute-mark threshold wins over the pulse that follows it.
func Classify(c Cycle) BitEvent {
	if c.Gap > MinuteMarkThresholdMs {
		return EventMinuteMark
	}
	return ClassifyPulse(c.Pulse)
}
