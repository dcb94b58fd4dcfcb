package gpio

import "errors"

// FakeLine is a test double that returns scripted signal levels.
type FakeLine struct {
	// Samples contains scripted levels. Each Sample is returned Count times
	// (at least once) before moving on to the next.
	Samples []Sample

	// OnRead, if set, is called after every Level() call. Tests use it to
	// advance a fake clock so that each poll takes simulated time.
	OnRead func()

	// index and served track the current position in Samples
	index  int
	served int

	// Reads counts calls to Level()
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Level()
	ReadError error
}

// Sample represents a run of identical line readings.
type Sample struct {
	High  bool
	Count int
}

// NewFakeLine creates a FakeLine with the given samples.
func NewFakeLine(samples []Sample) *FakeLine {
	return &FakeLine{Samples: samples}
}

// Level returns the next scripted level.
// If samples are exhausted, returns the last level repeatedly.
func (f *FakeLine) Level() (bool, error) {
	f.Reads++
	if f.OnRead != nil {
		defer f.OnRead()
	}
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	f.served++
	if f.served >= sample.Count && f.index < len(f.Samples)-1 {
		f.index++
		f.served = 0
	}
	return sample.High, nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the line to the beginning of samples.
func (f *FakeLine) Reset() {
	f.index = 0
	f.served = 0
	f.Reads = 0
	f.Closed = false
}

// FakeIndicator records LED state changes.
type FakeIndicator struct {
	States []bool
	Closed bool

	// SetError, if set, is returned by Set and the state is not recorded.
	SetError error
}

// Set records the new state.
func (f *FakeIndicator) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}
