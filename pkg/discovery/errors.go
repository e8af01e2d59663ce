package discovery

import "errors"

// Package-level sentinel errors for discovery operations.
var (
	// ErrClosed is returned when an operation is attempted on a closed component.
	ErrClosed = errors.New("discovery: closed")

	// ErrAlreadyStarted is returned when starting an already-started advertiser.
	ErrAlreadyStarted = errors.New("discovery: already started")

	// ErrNotStarted reports an advertiser that was not started. Close does
	// not return it: closing an advertiser that never started succeeds.
	ErrNotStarted = errors.New("discovery: not started")

	// ErrInvalidPort reports a port number outside 1-65535. NewAdvertiser
	// does not return it: it replaces such a port with DefaultPort.
	ErrInvalidPort = errors.New("discovery: invalid port (must be 1-65535)")

	// ErrNoAddresses reports that no IP addresses are available to
	// advertise. Start does not return it: it registers the service
	// without an addr= TXT record.
	ErrNoAddresses = errors.New("discovery: no IP addresses available")

	// ErrServiceNotFound is returned when a requested peer is not found.
	ErrServiceNotFound = errors.New("discovery: peer not found")

	// ErrTimeout is returned when a lookup operation times out.
	ErrTimeout = errors.New("discovery: operation timed out")
)
