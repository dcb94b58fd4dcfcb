package dcf77

import "time"

// Frame layout, counted from the first pulse after the minute mark.
const (
	bitSummer = 17 // A1/Z1: MESZ
	bitWinter = 18 // Z2: MEZ

	minuteStart, minuteEnd, minuteParity = 21, 27, 28
	hourStart, hourEnd, hourParity       = 29, 34, 35

	dateStart, dateEnd, dateParity = 36, 57, 58
	dayStart, dayEnd               = 36, 41
	weekdayStart, weekdayEnd       = 42, 44
	monthStart, monthEnd           = 45, 49
	yearStart, yearEnd             = 50, 57
)

// GetBits sums the slots in [start,end] with the earliest slot as the least
// significant bit. Unset slots count as 0.
func GetBits(f *Frame, start, end int) int {
	n := 0
	for i := start; i <= end; i++ {
		n += f.Bit(i) << (i - start)
	}
	return n
}

// Parity returns 1 if [start,end] holds an odd number of set bits, else 0.
func Parity(f *Frame, start, end int) int {
	n := 0
	for i := start; i <= end; i++ {
		n += f.Bit(i)
	}
	return n % 2
}

// groupFault checks the parity group [start,end] against its parity slot.
func groupFault(f *Frame, start, end, parity int) Fault {
	if !f.IsSet(start, end) || !f.IsSet(parity, parity) {
		return FaultIncomplete
	}
	if Parity(f, start, end) != f.Bit(parity) {
		return FaultParity
	}
	return FaultNone
}

// bcdField reads a units digit from the low four slots and a tens digit from
// the rest, then checks the result against [lo,hi].
func bcdField(f *Frame, start, end int, group Fault, lo, hi int) Field {
	if group != FaultNone {
		return Field{Fault: group}
	}
	units := GetBits(f, start, start+3)
	tens := 0
	if end > start+3 {
		tens = GetBits(f, start+4, end)
	}
	v := tens*10 + units
	if units > 9 || v < lo || v > hi {
		return Field{Value: v, Fault: FaultRange}
	}
	return Field{Value: v, Valid: true}
}

func weekdayField(f *Frame, group Fault) Field {
	if group != FaultNone {
		return Field{Fault: group}
	}
	v := GetBits(f, weekdayStart, weekdayEnd)
	if v < 1 || v > 7 {
		return Field{Value: v, Fault: FaultRange}
	}
	return Field{Value: v, Valid: true}
}

func dstField(f *Frame) Field {
	if !f.IsSet(bitSummer, bitWinter) {
		return Field{Fault: FaultIncomplete}
	}
	summer, winter := f.Bit(bitSummer) == 1, f.Bit(bitWinter) == 1
	switch {
	case summer && !winter:
		return Field{Value: 1, Valid: true}
	case winter && !summer:
		return Field{Value: 0, Valid: true}
	}
	return Field{Fault: FaultAmbiguous}
}

// Decode interprets a frozen frame. It never fails: each field carries its
// own validity. The date fields share one parity group and fail together.
func Decode(f Frame) TimeFields {
	minuteGroup := groupFault(&f, minuteStart, minuteEnd, minuteParity)
	hourGroup := groupFault(&f, hourStart, hourEnd, hourParity)
	dateGroup := groupFault(&f, dateStart, dateEnd, dateParity)

	return TimeFields{
		Minute:   bcdField(&f, minuteStart, minuteEnd, minuteGroup, 0, 59),
		Hour:     bcdField(&f, hourStart, hourEnd, hourGroup, 0, 23),
		Day:      bcdField(&f, dayStart, dayEnd, dateGroup, 1, 31),
		Weekday:  weekdayField(&f, dateGroup),
		Month:    bcdField(&f, monthStart, monthEnd, dateGroup, 1, 12),
		Year:     bcdField(&f, yearStart, yearEnd, dateGroup, 0, 99),
		DST:      dstField(&f),
		FrameLen: f.Len,
	}
}

// Fields returns the fields in display order, keyed by name.
func (t TimeFields) Fields() []NamedField {
	return []NamedField{
		{"minute", t.Minute},
		{"hour", t.Hour},
		{"day", t.Day},
		{"weekday", t.Weekday},
		{"month", t.Month},
		{"year", t.Year},
		{"dst", t.DST},
	}
}

// NamedField pairs a field with its name.
type NamedField struct {
	Name string
	Field
}

// Valid reports whether every field decoded cleanly.
func (t TimeFields) Valid() bool {
	for _, nf := range t.Fields() {
		if !nf.Valid {
			return false
		}
	}
	return true
}

// Zone returns the transmitted zone, or ZoneUnknown when the DST bits were not usable.
func (t TimeFields) Zone() Zone {
	if !t.DST.Valid {
		return ZoneUnknown
	}
	if t.DST.Value == 1 {
		return ZoneMESZ
	}
	return ZoneMEZ
}

var weekdayNames = [...]string{"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

// WeekdayName returns the three-letter name, or "" if the weekday is invalid.
func (t TimeFields) WeekdayName() string {
	if !t.Weekday.Valid {
		return ""
	}
	return weekdayNames[t.Weekday.Value-1]
}

// Time composes the transmitted local time. ok is false unless every field is
// valid and the date exists in the calendar.
func (t TimeFields) Time() (time.Time, bool) {
	if !t.Valid() {
		return time.Time{}, false
	}
	offset := 1
	if t.Zone() == ZoneMESZ {
		offset = 2
	}
	loc := time.FixedZone(string(t.Zone()), offset*3600)
	ts := time.Date(2000+t.Year.Value, time.Month(t.Month.Value), t.Day.Value, t.Hour.Value, t.Minute.Value, 0, 0, loc)
	if ts.Day() != t.Day.Value || int(ts.Month()) != t.Month.Value {
		return time.Time{}, false
	}
	return ts, true
}
