package handshake

import (
	"github.com/mpsproto/mps/pkg/frame"
	"github.com/mpsproto/mps/pkg/keystore"
)

// RunInitiator executes the initiator side of the handshake (spec
// section 4.4, set_handshake):
//
//  1. Serialize the negotiable config to JSON.
//  2. Send the P0 packet, then the raw JSON blob.
//  3. Send the local public key PEM over an unencrypted TR frame.
//  4. Receive the peer's public key PEM over an unencrypted TR frame.
//
// On success the engine's state is StateReady and Config()/PeerPublicKey()
// report the negotiated session.
func (e *Engine) RunInitiator() error {
	e.mu.Lock()
	if e.state.IsTerminal() {
		e.mu.Unlock()
		return ErrTerminal
	}
	cfg := e.config
	localPubPEM := e.localPubPEM
	e.mu.Unlock()

	jsonBlob, err := marshalConfig(cfg)
	if err != nil {
		return e.fail(err)
	}

	p0, err := frame.EncodeP0(cfg.ProtoName, cfg.ConfigFrameSize, len(jsonBlob))
	if err != nil {
		return e.fail(mapFrameErr(err))
	}

	if err := e.transport.SendAll(p0); err != nil {
		return e.fail(err)
	}
	if err := e.transport.SendAll(jsonBlob); err != nil {
		return e.fail(err)
	}
	e.setState(StateConfigSent)

	if err := frame.WriteTR(e.transport, e.trParams(), localPubPEM); err != nil {
		return e.fail(mapFrameErr(err))
	}
	e.setState(StatePubKeySent)

	peerPEM, err := frame.ReadTR(e.transport, e.trParams())
	if err != nil {
		return e.fail(mapFrameErr(err))
	}
	peerPub, err := keystore.ParsePublicPEM(peerPEM)
	if err != nil {
		return e.fail(err)
	}

	e.mu.Lock()
	e.peerPub = peerPub
	e.mu.Unlock()
	e.setState(StateReady)

	if e.log != nil {
		e.log.Infof("handshake: initiator ready (frame_size=%d key_size=%d)", cfg.FrameSize, cfg.KeySize)
	}
	return nil
}
