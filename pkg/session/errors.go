package session

import "errors"

// Session package errors.
var (
	// ErrNotReady is returned by Send/Recv when the handshake has not
	// reached handshake.StateReady.
	ErrNotReady = errors.New("session: handshake not ready")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("session: closed")

	// ErrEncoding is returned when Recv's payload is not valid UTF-8.
	ErrEncoding = errors.New("session: payload is not valid UTF-8 text")
)
