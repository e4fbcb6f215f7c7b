package supervisor

import "errors"

var (
	// ErrInvalidAddress is returned when the websocket address is not a
	// wss:// URL with a host.
	ErrInvalidAddress = errors.New("supervisor: invalid address")

	// ErrDial is returned when the websocket handshake fails.
	ErrDial = errors.New("supervisor: dial failed")

	// ErrSend is the cause recorded when a write to the peer fails.
	ErrSend = errors.New("supervisor: send failed")

	// ErrPeerClosed is returned by the inbound task when the peer sends a
	// close frame.
	ErrPeerClosed = errors.New("supervisor: peer closed session")

	// ErrIdle is the cause recorded when the idle watchdog fires.
	ErrIdle = errors.New("supervisor: no ping within idle timeout")

	errBusClosed = errors.New("supervisor: event bus closed")
)
