package frame

import "errors"

// Frame codec errors.
var (
	// ErrConfigTooTight is returned when a header does not fit within its
	// packet budget: a TR header longer than frame_size, or a P0 header
	// that leaves no room for padding within config_frame_size.
	ErrConfigTooTight = errors.New("frame: header does not fit the configured packet size")

	// ErrProtocolDesync is returned when a decoded header's kind tag
	// ("co" or "tr") does not match what the reader expected.
	ErrProtocolDesync = errors.New("frame: unexpected header kind")

	// ErrMalformedHeader is returned when a header cannot be split into
	// the expected number of fields, or a length field is not decimal.
	ErrMalformedHeader = errors.New("frame: malformed header")

	// ErrShortCiphertextTail is returned when a transfer payload ends
	// before the declared payload length is reached.
	ErrShortCiphertextTail = errors.New("frame: payload shorter than declared length")
)
