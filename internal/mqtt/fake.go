package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// FakePublisher is an in-memory Publisher. Every message goes through the
// same formatting as the real publisher and is then decoded again, so tests
// see exactly what a subscriber would.
type FakePublisher struct {
	// Minutes holds each published minute as handed to Publish.
	Minutes []dcf77.Minute
	// Payloads holds the wire bytes for each minute on Topic.
	Payloads [][]byte
	// Decoded holds each minute payload as a subscriber would parse it.
	// Invalid fields appear with a nil Value.
	Decoded []MinutePayload

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool

	// BufferedCount is reported by Buffered.
	BufferedCount int
}

// NewFakePublisher returns an empty, disconnected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish formats minute and records it unless PublishError is set.
func (f *FakePublisher) Publish(minute dcf77.Minute) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(minute)
	if err != nil {
		return err
	}
	var wire Payload
	if err := json.Unmarshal(payload, &wire); err != nil {
		return fmt.Errorf("decode minute payload: %w", err)
	}

	f.Minutes = append(f.Minutes, minute)
	f.Payloads = append(f.Payloads, payload)
	f.Decoded = append(f.Decoded, wire.DCF77)
	return nil
}

// PublishSystem formats event and records it unless PublishSystemError is set.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool { return f.Connected }

func (f *FakePublisher) Buffered() int { return f.BufferedCount }

// Reset returns f to the state NewFakePublisher gives.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
