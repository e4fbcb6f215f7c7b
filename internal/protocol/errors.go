package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for frames that are not a JSON envelope.
	ErrMalformed = errors.New("protocol: malformed message")

	// ErrUnknownMessage is returned for envelopes without data or with an
	// unrecognised name.
	ErrUnknownMessage = errors.New("protocol: unknown message")

	// ErrInvalidBody is returned when a known message carries a missing or
	// out of range field.
	ErrInvalidBody = errors.New("protocol: invalid message body")
)

// RemoteError is returned by Parse when the server sent an error envelope
// instead of a command.
type RemoteError struct {
	Raw string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("protocol: server reported error: %s", e.Raw)
}

func invalid(name, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidBody, name, fmt.Sprintf(format, args...))
}
