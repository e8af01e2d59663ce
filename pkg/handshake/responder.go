package handshake

import (
	"github.com/mpsproto/mps/pkg/frame"
	"github.com/mpsproto/mps/pkg/keystore"
)

// RunResponder executes the responder side of the handshake (spec
// section 4.4, get_handshake):
//
//  1. Read the P0 packet, decode the JSON config blob, install the
//     negotiated parameters.
//  2. If the peer's key_size differs from ours, regenerate the local
//     keypair at the peer's key_size.
//  3. Receive the peer's public key PEM, apply the pinning policy.
//  4. Send the local public key PEM.
//
// On success the engine's state is StateReady and Config()/PeerPublicKey()
// report the negotiated session.
func (e *Engine) RunResponder() error {
	e.mu.Lock()
	if e.state.IsTerminal() {
		e.mu.Unlock()
		return ErrTerminal
	}
	localCfg := e.config
	e.mu.Unlock()

	p0, err := e.transport.RecvExact(localCfg.ConfigFrameSize)
	if err != nil {
		return e.fail(err)
	}
	protoName, jsonLen, err := frame.DecodeP0(p0)
	if err != nil {
		return e.fail(mapFrameErr(err))
	}

	jsonBlob, err := e.transport.RecvExact(jsonLen)
	if err != nil {
		return e.fail(err)
	}
	peerCfg, err := unmarshalConfig(jsonBlob, localCfg.ConfigFrameSize, localCfg.ConfigEncoding)
	if err != nil {
		return e.fail(err)
	}
	if peerCfg.ProtoName == "" {
		peerCfg.ProtoName = protoName
	}

	e.mu.Lock()
	e.config = peerCfg
	e.mu.Unlock()
	e.setState(StateConfigReceived)

	if peerCfg.KeySize != localCfg.KeySize {
		priv, err := keystore.GenerateKey(peerCfg.KeySize)
		if err != nil {
			return e.fail(err)
		}
		e.mu.Lock()
		e.localPriv = priv
		e.localPubPEM = keystore.PublicPEM(&priv.PublicKey)
		e.mu.Unlock()
		if e.log != nil {
			e.log.Infof("handshake: responder regenerated keypair at key_size=%d", peerCfg.KeySize)
		}
	}

	e.setState(StatePubKeyAwaited)
	peerPEM, err := frame.ReadTR(e.transport, e.trParams())
	if err != nil {
		return e.fail(mapFrameErr(err))
	}

	if err := e.pinner.Check(e.opts.SavePub, e.opts.PubFile, peerPEM, e.opts.ConsoleLog); err != nil {
		return e.fail(ErrPeerKeyMismatch)
	}

	peerPub, err := keystore.ParsePublicPEM(peerPEM)
	if err != nil {
		return e.fail(err)
	}
	e.mu.Lock()
	e.peerPub = peerPub
	localPubPEM := e.localPubPEM
	e.mu.Unlock()

	if err := frame.WriteTR(e.transport, e.trParams(), localPubPEM); err != nil {
		return e.fail(mapFrameErr(err))
	}
	e.setState(StatePubKeySent)
	e.setState(StateReady)

	if e.log != nil {
		e.log.Infof("handshake: responder ready (frame_size=%d key_size=%d)", peerCfg.FrameSize, peerCfg.KeySize)
	}
	return nil
}
