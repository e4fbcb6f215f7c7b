// Package clock turns instants into the wall-clock fields the alarm loop
// compares against.
package clock

import "time"

// Clock supplies the current instant. Tests substitute a fixed or stepped clock.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// Func adapts a function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time { return f() }

// Local is a wall-clock reading in a particular zone.
// Weekday counts from Monday = 0 to Sunday = 6.
type Local struct {
	Weekday int
	Hour    int
	Minute  int
	Second  int
}

// In converts t to loc and extracts the Monday-based weekday and time of day.
// A nil loc is treated as UTC.
func In(t time.Time, loc *time.Location) Local {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return Local{
		Weekday: MondayIndex(lt.Weekday()),
		Hour:    lt.Hour(),
		Minute:  lt.Minute(),
		Second:  lt.Second(),
	}
}

// MondayIndex maps time.Weekday (Sunday = 0) to Monday = 0 ... Sunday = 6.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// HourWithin reports whether the local hour of t in loc lies in [from, to].
func HourWithin(t time.Time, loc *time.Location, from, to int) bool {
	h := In(t, loc).Hour
	return h >= from && h <= to
}
