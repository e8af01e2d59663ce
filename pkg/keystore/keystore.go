// Package keystore implements the MPS key store and pinning policy (spec
// section 4.5): optional on-disk persistence of the local RSA keypair,
// and optional trust-on-first-use pinning of the peer's public-key
// fingerprint. Both behaviors are independent and opt-in.
package keystore

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/pion/logging"
)

// keyFileSeparator is the blank line separating the public and private
// PEM halves of a persisted key file.
const keyFileSeparator = "\n\n"

// Store loads and persists the local RSA keypair. Construct one per
// session; it holds no state beyond an optional logger.
type Store struct {
	log logging.LeveledLogger
}

// NewStore creates a Store. loggerFactory may be nil to discard
// diagnostics.
func NewStore(loggerFactory logging.LoggerFactory) *Store {
	s := &Store{}
	if loggerFactory != nil {
		s.log = loggerFactory.NewLogger("keystore")
	}
	return s
}

// LoadOrGenerate implements the const_key behavior. If constKey is false,
// a fresh keypair is generated every call. If constKey is true and
// keyFile exists, the keypair is loaded from it. If constKey is true and
// keyFile is absent, a fresh keypair is generated at keySizeBits and
// written to keyFile in the same layout before being returned.
func (s *Store) LoadOrGenerate(constKey bool, keyFile string, keySizeBits int) (*rsa.PrivateKey, error) {
	if !constKey {
		return generateKey(keySizeBits)
	}

	if _, err := os.Stat(keyFile); err == nil {
		return s.load(keyFile)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	priv, err := generateKey(keySizeBits)
	if err != nil {
		return nil, err
	}
	if err := s.save(keyFile, priv); err != nil {
		return nil, err
	}
	return priv, nil
}

// GenerateKey generates a fresh RSA keypair of the given modulus size.
// Exposed for callers that need to regenerate a keypair outside the
// load-or-generate-and-persist flow, e.g. the handshake responder's
// key_size renegotiation (spec section 4.4 step 3).
func GenerateKey(keySizeBits int) (*rsa.PrivateKey, error) {
	return generateKey(keySizeBits)
}

func generateKey(keySizeBits int) (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, keySizeBits)
}

// PublicPEM returns the PKCS#1 PEM serialization of a public key,
// matching the wire format public keys are exchanged in (spec section 6).
func PublicPEM(pub *rsa.PublicKey) []byte {
	block := &pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	}
	return pem.EncodeToMemory(block)
}

// ParsePublicPEM parses a PKCS#1 public-key PEM block, as received from a
// peer during the handshake's key exchange.
func ParsePublicPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNotPEM
	}
	return x509.ParsePKCS1PublicKey(block.Bytes)
}

func privatePEM(priv *rsa.PrivateKey) []byte {
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	}
	return pem.EncodeToMemory(block)
}

// load reads a key file ("<public PEM>\n\n<private PEM>") and returns the
// private key (which also carries the public key).
func (s *Store) load(keyFile string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}

	idx := bytes.Index(data, []byte(keyFileSeparator))
	if idx < 0 {
		return nil, ErrMalformedKeyFile
	}
	privPart := data[idx+len(keyFileSeparator):]

	block, _ := pem.Decode(privPart)
	if block == nil {
		return nil, ErrNotPEM
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Infof("keystore: loaded local keypair from %s", keyFile)
	}
	return priv, nil
}

// save atomically writes a key file in the "<public PEM>\n\n<private PEM>"
// layout: write to a sibling temp file, then rename over the destination.
func (s *Store) save(keyFile string, priv *rsa.PrivateKey) error {
	var buf []byte
	buf = append(buf, PublicPEM(&priv.PublicKey)...)
	buf = append(buf, []byte(keyFileSeparator)...)
	buf = append(buf, privatePEM(priv)...)

	dir := filepath.Dir(keyFile)
	tmp, err := os.CreateTemp(dir, ".mps-key-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, keyFile); err != nil {
		os.Remove(tmpName)
		return err
	}

	if s.log != nil {
		s.log.Infof("keystore: generated and persisted local keypair to %s", keyFile)
	}
	return nil
}
