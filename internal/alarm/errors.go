package alarm

import "errors"

var (
	// ErrNotFound is returned when an alarm ID does not exist.
	ErrNotFound = errors.New("alarm: not found")

	// ErrDuplicate is returned when an alarm already exists for the same day, hour and minute.
	ErrDuplicate = errors.New("alarm: duplicate day/hour/minute")

	// ErrInvalid is returned when a day, hour or minute is out of range.
	ErrInvalid = errors.New("alarm: invalid value")

	// ErrUnknownZone is returned when a timezone name cannot be loaded.
	ErrUnknownZone = errors.New("alarm: unknown timezone")
)
