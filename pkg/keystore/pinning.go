package keystore

import (
	"crypto/sha512"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pion/logging"
)

// Pinner implements the save_pub trust-on-first-use policy: the SHA-512
// hex digest of the peer's public-key PEM is compared against (or, on
// first use, written to) pubFile. Applied only on the responder side of
// the handshake, per spec section 4.5.
type Pinner struct {
	log logging.LeveledLogger
}

// NewPinner creates a Pinner. loggerFactory may be nil to discard
// diagnostics.
func NewPinner(loggerFactory logging.LoggerFactory) *Pinner {
	p := &Pinner{}
	if loggerFactory != nil {
		p.log = loggerFactory.NewLogger("keystore")
	}
	return p
}

// Fingerprint returns the lowercase hex SHA-512 digest of a public-key
// PEM blob.
func Fingerprint(peerPubPEM []byte) string {
	sum := sha512.Sum512(peerPubPEM)
	return hex.EncodeToString(sum[:])
}

// Check applies the save_pub policy. If savePub is false, pinning is
// disabled and Check always succeeds. If pubFile is absent, the peer's
// fingerprint is written to it (trust-on-first-use) and Check succeeds.
// If pubFile exists, its contents must match the peer's fingerprint or
// Check fails with ErrPeerKeyMismatch. consoleLog, when true, emits one
// diagnostic line on mismatch.
func (p *Pinner) Check(savePub bool, pubFile string, peerPubPEM []byte, consoleLog bool) error {
	if !savePub {
		return nil
	}

	fp := Fingerprint(peerPubPEM)

	existing, err := os.ReadFile(pubFile)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		return p.pin(pubFile, fp)
	}

	stored := string(existing)
	if stored != fp {
		if consoleLog && p.log != nil {
			p.log.Warnf("keystore: peer public key fingerprint %s does not match pinned %s", fp, stored)
		}
		return ErrPeerKeyMismatch
	}
	return nil
}

func (p *Pinner) pin(pubFile, fp string) error {
	dir := filepath.Dir(pubFile)
	tmp, err := os.CreateTemp(dir, ".mps-pin-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(fp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, pubFile); err != nil {
		os.Remove(tmpName)
		return err
	}

	if p.log != nil {
		p.log.Infof("keystore: pinned peer public key fingerprint to %s (trust-on-first-use)", pubFile)
	}
	return nil
}
