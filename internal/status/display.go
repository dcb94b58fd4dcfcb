package status

import (
	"fmt"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// Display is the rendered form of a decoded minute. Invalid parts are dashes,
// never an older value.
type Display struct {
	Time    string // "14:37", "--:37"
	Date    string // "16.10.26", "--.--.--"
	Weekday string // "FRI", "---"
	Zone    string // "MESZ", "MEZ", "----"
}

func two(f dcf77.Field) string {
	if !f.Valid {
		return "--"
	}
	return fmt.Sprintf("%02d", f.Value)
}

// Render formats the fields of a minute for display.
func Render(tf dcf77.TimeFields) Display {
	d := Display{
		Time:    two(tf.Hour) + ":" + two(tf.Minute),
		Date:    two(tf.Day) + "." + two(tf.Month) + "." + two(tf.Year),
		Weekday: tf.WeekdayName(),
		Zone:    string(tf.Zone()),
	}
	if d.Weekday == "" {
		d.Weekday = "---"
	}
	if d.Zone == "" {
		d.Zone = "----"
	}
	return d
}

// String is the one-line form used in logs.
func (d Display) String() string {
	return fmt.Sprintf("%s %s %s %s", d.Weekday, d.Date, d.Time, d.Zone)
}
