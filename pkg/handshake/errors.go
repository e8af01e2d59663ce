package handshake

import "errors"

// Handshake engine errors.
var (
	// ErrProtocolDesync is returned when a P0 or TR header's kind tag
	// does not match what the handshake step expects.
	ErrProtocolDesync = errors.New("handshake: unexpected header kind")

	// ErrConfigTooTight is returned when the negotiated frame_size or
	// config_frame_size leaves no room for the required header.
	ErrConfigTooTight = errors.New("handshake: header does not fit the configured packet size")

	// ErrPeerKeyMismatch is returned when the responder's pinning policy
	// rejects the initiator's public key.
	ErrPeerKeyMismatch = errors.New("handshake: peer public key failed pinning check")

	// ErrNotHandshaken is returned when an operation that requires a
	// completed handshake is attempted on a session that is not Ready.
	ErrNotHandshaken = errors.New("handshake: session has not completed handshake")

	// ErrTerminal is returned when a handshake step is attempted on an
	// engine that already failed or closed. The state machine is not
	// restartable.
	ErrTerminal = errors.New("handshake: engine is in a terminal state")

	// ErrInvalidConfig is returned when a Config fails validation (e.g.
	// key_size not a multiple of 8, or too small to fit one PKCS#1 v1.5
	// plaintext byte).
	ErrInvalidConfig = errors.New("handshake: invalid session configuration")
)
