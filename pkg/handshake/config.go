package handshake

import "encoding/json"

// Default handshake-only constants (spec section 3).
const (
	DefaultFrameSize       = 1000
	DefaultProtoName       = "mps"
	DefaultSplit           = '$'
	DefaultTextEncoding    = "utf-8"
	DefaultKeySize         = 512
	DefaultConfigFrameSize = 1000
	DefaultConfigEncoding  = "utf-8"
)

// Config holds the session parameters negotiated during the handshake
// (frame_size, proto_name, split, text_encoding, key_size) plus the two
// handshake-only constants that are never renegotiated
// (config_frame_size, config_encoding).
//
// Both endpoints converge on the initiator's advertised key_size if the
// two sides differ (the responder regenerates its keypair at that size);
// every other negotiable field is likewise fixed by whichever value the
// initiator proposes in the P0/JSON exchange.
type Config struct {
	FrameSize       int
	ProtoName       string
	Split           byte
	TextEncoding    string
	KeySize         int
	ConfigFrameSize int
	ConfigEncoding  string
}

// DefaultConfig returns the spec-default session configuration.
func DefaultConfig() Config {
	return Config{
		FrameSize:       DefaultFrameSize,
		ProtoName:       DefaultProtoName,
		Split:           DefaultSplit,
		TextEncoding:    DefaultTextEncoding,
		KeySize:         DefaultKeySize,
		ConfigFrameSize: DefaultConfigFrameSize,
		ConfigEncoding:  DefaultConfigEncoding,
	}
}

// WithDefaults returns a copy of c with zero-valued fields replaced by
// spec defaults.
func (c Config) WithDefaults() Config {
	result := c
	if result.FrameSize == 0 {
		result.FrameSize = DefaultFrameSize
	}
	if result.ProtoName == "" {
		result.ProtoName = DefaultProtoName
	}
	if result.Split == 0 {
		result.Split = DefaultSplit
	}
	if result.TextEncoding == "" {
		result.TextEncoding = DefaultTextEncoding
	}
	if result.KeySize == 0 {
		result.KeySize = DefaultKeySize
	}
	if result.ConfigFrameSize == 0 {
		result.ConfigFrameSize = DefaultConfigFrameSize
	}
	if result.ConfigEncoding == "" {
		result.ConfigEncoding = DefaultConfigEncoding
	}
	return result
}

// Validate checks the invariants from spec section 3: key_size must be a
// multiple of 8 and at least 96 bits, so the PKCS#1 v1.5 plaintext block
// size (key_size/8 - 11) is at least 1 byte.
func (c Config) Validate() error {
	if c.KeySize%8 != 0 || c.KeySize < 96 {
		return ErrInvalidConfig
	}
	if c.FrameSize <= 0 || c.ConfigFrameSize <= 0 {
		return ErrInvalidConfig
	}
	if c.ProtoName == "" {
		return ErrInvalidConfig
	}
	return nil
}

// wireConfig is the JSON object exchanged during the handshake (spec
// section 6): keys size, name, split, encoding, key_size, serialized
// without extra whitespace.
type wireConfig struct {
	Size     int    `json:"size"`
	Name     string `json:"name"`
	Split    string `json:"split"`
	Encoding string `json:"encoding"`
	KeySize  int    `json:"key_size"`
}

func (c Config) toWire() wireConfig {
	return wireConfig{
		Size:     c.FrameSize,
		Name:     c.ProtoName,
		Split:    string(c.Split),
		Encoding: c.TextEncoding,
		KeySize:  c.KeySize,
	}
}

func (w wireConfig) toConfig(configFrameSize int, configEncoding string) (Config, error) {
	if len(w.Split) != 1 {
		return Config{}, ErrInvalidConfig
	}
	return Config{
		FrameSize:       w.Size,
		ProtoName:       w.Name,
		Split:           w.Split[0],
		TextEncoding:    w.Encoding,
		KeySize:         w.KeySize,
		ConfigFrameSize: configFrameSize,
		ConfigEncoding:  configEncoding,
	}, nil
}

// marshalConfig serializes c's negotiable fields to JSON, compact (no
// extra whitespace), as spec section 6 requires.
func marshalConfig(c Config) ([]byte, error) {
	return json.Marshal(c.toWire())
}

// unmarshalConfig parses a JSON config blob into a Config, carrying over
// the caller's own (non-negotiated) configFrameSize/configEncoding.
func unmarshalConfig(data []byte, configFrameSize int, configEncoding string) (Config, error) {
	var w wireConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return Config{}, err
	}
	return w.toConfig(configFrameSize, configEncoding)
}
