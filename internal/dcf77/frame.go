package dcf77

// FrameSize is the number of second slots in a minute frame.
// Slot 58 is the date parity, slot 59 is the missing pulse of the minute mark.
const FrameSize = 60

// Slot is a tri-state frame position.
type Slot uint8

const (
	SlotUnset Slot = iota
	SlotZero
	SlotOne
)

// Frame is a fixed-capacity minute buffer indexed by second of minute.
type Frame struct {
	Slots [FrameSize]Slot
	// Len is how many slots were written, capped at FrameSize.
	Len int
	// Aligned is true when slot 0 was the first pulse after a minute mark.
	Aligned bool
}

// Bit returns the value of slot i, treating unset slots as 0.
func (f *Frame) Bit(i int) int {
	if f.Slots[i] == SlotOne {
		return 1
	}
	return 0
}

// IsSet reports whether every slot in [start,end] has been written.
func (f *Frame) IsSet(start, end int) bool {
	for i := start; i <= end; i++ {
		if f.Slots[i] == SlotUnset {
			return false
		}
	}
	return true
}

// Set writes a bit into slot i.
func (f *Frame) Set(i int, one bool) {
	if one {
		f.Slots[i] = SlotOne
	} else {
		f.Slots[i] = SlotZero
	}
}

// Accumulator owns the live frame and the second index.
// Not safe for concurrent use.
type Accumulator struct {
	live  Frame
	index int
}

// NewAccumulator creates an accumulator. Its first frame is unaligned because
// reception may start anywhere in the minute.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Push feeds one event. On a minute mark the live frame is returned frozen
// (a copy) with ok=true and a fresh aligned frame starts at index 0.
// Bits beyond the last slot keep overwriting it until the next mark.
func (a *Accumulator) Push(ev BitEvent) (frozen Frame, ok bool) {
	switch ev {
	case EventMinuteMark:
		frozen = a.live
		a.live = Frame{Aligned: true}
		a.index = 0
		return frozen, true
	case EventZero, EventOne:
		a.live.Set(a.index, ev == EventOne)
		if a.index < FrameSize-1 {
			a.index++
		}
		if a.live.Len < FrameSize {
			a.live.Len++
		}
	}
	return Frame{}, false
}

// Index returns the slot the next bit will be written to.
func (a *Accumulator) Index() int {
	return a.index
}

// Live returns a copy of the frame being filled.
func (a *Accumulator) Live() Frame {
	return a.live
}
