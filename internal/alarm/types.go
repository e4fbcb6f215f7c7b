package alarm

import (
	"fmt"
	"time"
	_ "time/tzdata" // zones resolve on hosts without a zoneinfo database
)

// DefaultZone is used when the timezone table is empty or unreadable.
const DefaultZone = "Etc/UTC"

// Alarm is a single weekly wake-up time.
type Alarm struct {
	ID     int64 `json:"alarm_id"`
	Day    uint8 `json:"day"`
	Hour   uint8 `json:"hour"`
	Minute uint8 `json:"minute"`
}

// String formats the alarm for logs.
func (a Alarm) String() string {
	return fmt.Sprintf("alarm_id: %d, day: %d, hour: %d, minute: %d", a.ID, a.Day, a.Hour, a.Minute)
}

// Matches reports whether the alarm fires at the given Monday-based weekday,
// hour and minute.
func (a Alarm) Matches(day, hour, minute int) bool {
	return int(a.Day) == day && int(a.Hour) == hour && int(a.Minute) == minute
}

// Validate checks day 0-6, hour 0-23 and minute 0-59.
func Validate(day, hour, minute int) error {
	switch {
	case day < 0 || day > 6:
		return fmt.Errorf("%w: day %d not in 0..6", ErrInvalid, day)
	case hour < 0 || hour > 23:
		return fmt.Errorf("%w: hour %d not in 0..23", ErrInvalid, hour)
	case minute < 0 || minute > 59:
		return fmt.Errorf("%w: minute %d not in 0..59", ErrInvalid, minute)
	}
	return nil
}

// Timezone is the stored device zone.
type Timezone struct {
	ID   int64  `json:"timezone_id"`
	Name string `json:"zone_name"`
}

// DefaultTimezone returns the fallback zone record.
func DefaultTimezone() Timezone {
	return Timezone{ID: 1, Name: DefaultZone}
}

// Location resolves the zone, falling back to UTC when it cannot be loaded.
func (tz Timezone) Location() *time.Location {
	loc, err := time.LoadLocation(tz.Name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateZone reports whether name is a loadable IANA zone.
func ValidateZone(name string) error {
	if name == "" || name == "Local" {
		return fmt.Errorf("%w: %q is not an IANA zone", ErrUnknownZone, name)
	}
	if _, err := time.LoadLocation(name); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	return nil
}
