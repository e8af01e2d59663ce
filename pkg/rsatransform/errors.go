package rsatransform

import "errors"

// Crypto transform errors.
var (
	// ErrCrypto is returned when an encrypt/decrypt block is rejected by
	// the underlying RSA primitive (wrong length, corrupted ciphertext).
	ErrCrypto = errors.New("rsatransform: block rejected by RSA primitive")

	// ErrShortTail is returned when a ciphertext's final block is not
	// exactly one modulus in length.
	ErrShortTail = errors.New("rsatransform: ciphertext tail is not a full block")

	// ErrKeySizeTooSmall is returned when key_size leaves no room for a
	// PKCS#1 v1.5 plaintext block (key_size/8 - 11 < 1).
	ErrKeySizeTooSmall = errors.New("rsatransform: key_size too small for PKCS#1 v1.5 framing")
)
