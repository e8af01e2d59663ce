package transport

import "errors"

// Transport adapter errors.
var (
	// ErrClosed is returned when an operation is attempted on a closed
	// adapter, or the underlying stream ended or errored mid-read/write.
	// This realizes the TransportClosed error kind from spec section 7.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidAddress is returned when a nil or empty address is given
	// to a dial helper.
	ErrInvalidAddress = errors.New("transport: invalid address")
)
