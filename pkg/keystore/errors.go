package keystore

import "errors"

// Key store and pinning errors.
var (
	// ErrPeerKeyMismatch is returned when a pinned peer's public-key
	// fingerprint does not match the one on file.
	ErrPeerKeyMismatch = errors.New("keystore: peer public key does not match pinned fingerprint")

	// ErrMalformedKeyFile is returned when a persisted key file cannot be
	// split into its public and private PEM halves.
	ErrMalformedKeyFile = errors.New("keystore: malformed key file")

	// ErrNotPEM is returned when a value that should be a PKCS#1 PEM
	// block cannot be decoded as one.
	ErrNotPEM = errors.New("keystore: not a PEM-encoded PKCS#1 key")
)
