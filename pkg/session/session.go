// Package session implements the MPS session facade (spec section 4.6):
// the public surface a caller drives after a successful handshake —
// Send/SendRaw/Recv/RecvRaw/Close — sitting on top of the transport
// adapter, the negotiated handshake.Config, and the RSA block transform.
package session

import (
	"crypto/rsa"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/mpsproto/mps/pkg/frame"
	"github.com/mpsproto/mps/pkg/handshake"
	"github.com/mpsproto/mps/pkg/rsatransform"
)

// Session wraps a ready handshake.Engine with the send/recv facade
// described in spec section 4.6. Construct one with New once the
// handshake engine has reached handshake.StateReady; it is not usable
// before that and not reusable after Close.
type Session struct {
	id uuid.UUID

	transport handshake.Transport
	config    handshake.Config
	localPriv *rsa.PrivateKey
	peerPub   *rsa.PublicKey

	log logging.LeveledLogger

	mu     sync.Mutex
	closed bool
}

// New constructs a Session from a completed handshake.Engine. Returns
// ErrNotReady if the engine has not reached handshake.StateReady.
func New(engine *handshake.Engine, transport handshake.Transport, loggerFactory logging.LoggerFactory) (*Session, error) {
	if engine.State() != handshake.StateReady {
		return nil, ErrNotReady
	}

	peerPub, err := engine.PeerPublicKey()
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        uuid.New(),
		transport: transport,
		config:    engine.Config(),
		localPriv: engine.LocalPrivateKey(),
		peerPub:   peerPub,
	}
	if loggerFactory != nil {
		s.log = loggerFactory.NewLogger("session")
	}
	return s, nil
}

// ID returns this session's correlation identifier. It has no meaning on
// the wire; it exists for logging and for correlating a Session with
// external bookkeeping (metrics, discovery records).
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Params returns the negotiated session configuration (spec section 3):
// frame_size, proto_name, split, text_encoding, key_size, plus the fixed
// config_frame_size/config_encoding.
func (s *Session) Params() handshake.Config {
	return s.config
}

// SendRaw transforms data through the RSA block cipher and writes it as
// one TR payload (spec section 4.3/4.2). Set encrypted to false to send
// data unencrypted, as the handshake's own key exchange does.
func (s *Session) SendRaw(data []byte, encrypted bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	cfg := s.config
	peerPub := s.peerPub
	s.mu.Unlock()

	payload := data
	if encrypted {
		ciphertext, err := rsatransform.Encrypt(data, peerPub, cfg.KeySize)
		if err != nil {
			return err
		}
		payload = ciphertext
	}

	if err := frame.WriteTR(s.transport, trParams(cfg), payload); err != nil {
		return mapFrameErr(err)
	}
	return nil
}

// Send sends the UTF-8 bytes of text via SendRaw; the negotiated
// text_encoding is not consulted. encrypted
// defaults to true at the call sites that matter (spec section 4.6's
// send(text, encrypted=true)); pass false to send plaintext, as the
// handshake's own key exchange does.
func (s *Session) Send(text string, encrypted bool) error {
	return s.SendRaw([]byte(text), encrypted)
}

// RecvRaw reads one TR payload and, if encrypted, reverses the RSA block
// transform (spec section 4.3/4.2).
func (s *Session) RecvRaw(encrypted bool) ([]byte, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	cfg := s.config
	localPriv := s.localPriv
	s.mu.Unlock()

	payload, err := frame.ReadTR(s.transport, trParams(cfg))
	if err != nil {
		return nil, mapFrameErr(err)
	}

	if !encrypted {
		return payload, nil
	}

	plaintext, err := rsatransform.Decrypt(payload, localPriv, cfg.KeySize)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// Recv reads one TR payload and returns it as a string if it is valid
// UTF-8, or ErrEncoding otherwise; the negotiated text_encoding is not
// consulted. encrypted mirrors Send's parameter: pass false to read
// plaintext.
func (s *Session) Recv(encrypted bool) (string, error) {
	plaintext, err := s.RecvRaw(encrypted)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", ErrEncoding
	}
	return string(plaintext), nil
}

// Close closes the underlying transport. Idempotent, and never returns an
// error: a failure to close the transport is logged instead.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("session: closing %s", s.id)
	}
	if closer, ok := s.transport.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && s.log != nil {
			s.log.Warnf("session: closing %s: %v", s.id, err)
		}
	}
	return nil
}

func trParams(cfg handshake.Config) frame.Params {
	return frame.Params{
		FrameSize: cfg.FrameSize,
		ProtoName: cfg.ProtoName,
		Split:     cfg.Split,
	}
}

func mapFrameErr(err error) error {
	switch err {
	case frame.ErrConfigTooTight:
		return handshake.ErrConfigTooTight
	case frame.ErrProtocolDesync:
		return handshake.ErrProtocolDesync
	default:
		return err
	}
}
