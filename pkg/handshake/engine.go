// Package handshake implements the MPS handshake engine (spec section
// 4.4): the state machine that exchanges configuration and RSA public
// keys between an initiator and a responder. The P0 packet and the JSON
// config blob are raw writes; the public keys travel over the TR frame
// path with encryption off.
package handshake

import (
	"crypto/rsa"
	"sync"

	"github.com/mpsproto/mps/pkg/frame"
	"github.com/mpsproto/mps/pkg/keystore"
	"github.com/pion/logging"
)

// Transport is the minimal contract the handshake engine needs from the
// transport layer: total send/receive, matching pkg/transport.Adapter.
type Transport interface {
	SendAll(buf []byte) error
	RecvExact(n int) ([]byte, error)
}

// Engine runs one side of the MPS handshake over an injected Transport.
// Construct a fresh Engine per session; it is not restartable.
type Engine struct {
	transport Transport
	opts      KeyOptions
	log       logging.LeveledLogger

	store  *keystore.Store
	pinner *keystore.Pinner

	mu          sync.Mutex
	state       State
	config      Config
	localPriv   *rsa.PrivateKey
	localPubPEM []byte
	peerPub     *rsa.PublicKey
}

// NewEngine creates a handshake Engine. proposed is the locally proposed
// Config (used as-is by the initiator; overridden by whatever the peer
// sends on the responder side, except key_size convergence per spec
// section 4.4 step 3). loggerFactory may be nil to discard diagnostics.
func NewEngine(transport Transport, proposed Config, opts KeyOptions, loggerFactory logging.LoggerFactory) (*Engine, error) {
	proposed = proposed.WithDefaults()
	if err := proposed.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		transport: transport,
		opts:      opts,
		config:    proposed,
		state:     StateFresh,
		store:     keystore.NewStore(loggerFactory),
		pinner:    keystore.NewPinner(loggerFactory),
	}
	if loggerFactory != nil {
		e.log = loggerFactory.NewLogger("handshake")
	}

	priv, err := e.store.LoadOrGenerate(opts.ConstKey, opts.KeyFile, proposed.KeySize)
	if err != nil {
		return nil, err
	}
	e.localPriv = priv
	e.localPubPEM = keystore.PublicPEM(&priv.PublicKey)

	return e, nil
}

// State returns the current handshake state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Config returns the negotiated session configuration. Only meaningful
// once State() == StateReady.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// LocalPrivateKey returns the local RSA private key installed for this
// session (freshly generated or loaded from the key file).
func (e *Engine) LocalPrivateKey() *rsa.PrivateKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localPriv
}

// PeerPublicKey returns the peer's RSA public key. Returns
// ErrNotHandshaken if the engine has not yet reached StateReady, since
// the peer's key is only installed at the end of the handshake.
func (e *Engine) PeerPublicKey() (*rsa.PublicKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReady {
		return nil, ErrNotHandshaken
	}
	return e.peerPub, nil
}

// Close transitions the engine to StateClosed (spec section 4.4's
// Ready -> Closed step), mirroring session.Session.Close()'s idempotent,
// non-raising policy. A no-op if the engine already reached a terminal
// state (Failed or Closed).
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.IsTerminal() {
		return nil
	}
	prior := e.state
	e.state = StateClosed
	if e.log != nil {
		e.log.Infof("handshake: engine closed from state %s", prior)
	}
	return nil
}

func (e *Engine) trParams() frame.Params {
	return frame.Params{
		FrameSize: e.config.FrameSize,
		ProtoName: e.config.ProtoName,
		Split:     e.config.Split,
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) fail(err error) error {
	e.setState(StateFailed)
	if e.log != nil {
		e.log.Errorf("handshake: failed: %v", err)
	}
	return err
}

func mapFrameErr(err error) error {
	switch err {
	case frame.ErrConfigTooTight:
		return ErrConfigTooTight
	case frame.ErrProtocolDesync:
		return ErrProtocolDesync
	default:
		return err
	}
}
