package auth

import "errors"

var (
	// ErrRequestFailed is returned when the token endpoint cannot be reached
	// or answers with a non-2xx status.
	ErrRequestFailed = errors.New("auth: token request failed")

	// ErrBadResponse is returned when the reply is not the expected JSON.
	ErrBadResponse = errors.New("auth: malformed token response")

	// ErrEmptyToken is returned when the reply carries an empty token.
	ErrEmptyToken = errors.New("auth: empty token")
)
