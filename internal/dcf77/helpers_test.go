package dcf77

import "testing"

// wallTime is the content of one DCF77 minute.
type wallTime struct {
	minute, hour, day, weekday, month, year int
	summer                                  bool
}

// setBits writes v LSB-first into [start,end].
func setBits(f *Frame, start, end, v int) {
	for i := start; i <= end; i++ {
		f.Set(i, v&(1<<(i-start)) != 0)
	}
}

// setBCD writes v as a units digit in the low four slots and tens above.
func setBCD(f *Frame, start, end, v int) {
	setBits(f, start, start+3, v%10)
	if end > start+3 {
		setBits(f, start+4, end, v/10)
	}
}

func setParity(f *Frame, start, end, parity int) {
	f.Set(parity, Parity(f, start, end) == 1)
}

// encodeFrame builds a complete, aligned 59-slot frame for w.
func encodeFrame(t *testing.T, w wallTime) Frame {
	t.Helper()
	f := Frame{Aligned: true, Len: 59}
	for i := 0; i <= 58; i++ {
		f.Set(i, false)
	}
	f.Set(17, w.summer)
	f.Set(18, !w.summer)
	f.Set(20, true) // start of time information

	setBCD(&f, 21, 27, w.minute)
	setParity(&f, 21, 27, 28)
	setBCD(&f, 29, 34, w.hour)
	setParity(&f, 29, 34, 35)

	setBCD(&f, 36, 41, w.day)
	setBits(&f, 42, 44, w.weekday)
	setBCD(&f, 45, 49, w.month)
	setBCD(&f, 50, 57, w.year)
	setParity(&f, 36, 57, 58)
	return f
}

// frameCycles converts a frame into the cycles a receiver would measure,
// preceded by the minute-mark gap that opens it.
func frameCycles(f Frame) []Cycle {
	cycles := make([]Cycle, 0, f.Len)
	for i := 0; i < f.Len; i++ {
		c := Cycle{Gap: 850, Pulse: 100}
		if f.Slots[i] == SlotOne {
			c = Cycle{Gap: 750, Pulse: 200}
		}
		if i == 0 {
			c.Gap += 1000
		}
		cycles = append(cycles, c)
	}
	return cycles
}
