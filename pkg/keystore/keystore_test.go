package keystore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrGenerateWithoutConstKeyAlwaysFresh(t *testing.T) {
	s := NewStore(nil)

	priv1, err := s.LoadOrGenerate(false, "", 512)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	priv2, err := s.LoadOrGenerate(false, "", 512)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	if priv1.N.Cmp(priv2.N) == 0 {
		t.Fatal("expected distinct keys when const_key is disabled")
	}
}

func TestLoadOrGenerateConstKeyPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "mps.key")
	s := NewStore(nil)

	priv1, err := s.LoadOrGenerate(true, keyFile, 512)
	if err != nil {
		t.Fatalf("first LoadOrGenerate: %v", err)
	}
	if _, err := os.Stat(keyFile); err != nil {
		t.Fatalf("expected key file to be written: %v", err)
	}

	priv2, err := s.LoadOrGenerate(true, keyFile, 512)
	if err != nil {
		t.Fatalf("second LoadOrGenerate: %v", err)
	}
	if priv1.N.Cmp(priv2.N) != 0 {
		t.Fatal("expected the same key to be reloaded from disk")
	}
}

func TestKeyFileLayout(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "mps.key")
	s := NewStore(nil)

	if _, err := s.LoadOrGenerate(true, keyFile, 512); err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	parts := splitOnce(string(data), keyFileSeparator)
	if len(parts) != 2 {
		t.Fatalf("expected exactly one blank-line separator, got %d parts", len(parts))
	}
	if _, err := ParsePublicPEM([]byte(parts[0])); err != nil {
		t.Fatalf("public half did not parse as PKCS#1 PEM: %v", err)
	}
}

func splitOnce(s, sep string) []string {
	idx := -1
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []string{s}
	}
	return []string{s[:idx], s[idx+len(sep):]}
}

func TestPinningTrustOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	pubFile := filepath.Join(dir, "peer.pin")
	p := NewPinner(nil)

	peerPEM := []byte("-----BEGIN RSA PUBLIC KEY-----\nfake\n-----END RSA PUBLIC KEY-----\n")
	if err := p.Check(true, pubFile, peerPEM, false); err != nil {
		t.Fatalf("first Check (trust-on-first-use): %v", err)
	}

	data, err := os.ReadFile(pubFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != Fingerprint(peerPEM) {
		t.Fatalf("pin file does not contain the expected fingerprint")
	}

	// Same key again: succeeds, file unchanged.
	if err := p.Check(true, pubFile, peerPEM, false); err != nil {
		t.Fatalf("second Check with same key: %v", err)
	}

	// Different key: fails, file unchanged.
	otherPEM := []byte("-----BEGIN RSA PUBLIC KEY-----\nother\n-----END RSA PUBLIC KEY-----\n")
	if err := p.Check(true, pubFile, otherPEM, false); err != ErrPeerKeyMismatch {
		t.Fatalf("got %v, want ErrPeerKeyMismatch", err)
	}

	after, err := os.ReadFile(pubFile)
	if err != nil {
		t.Fatalf("ReadFile after mismatch: %v", err)
	}
	if string(after) != string(data) {
		t.Fatal("pin file must be unchanged after a mismatched handshake")
	}
}

func TestPinningDisabledAlwaysSucceeds(t *testing.T) {
	p := NewPinner(nil)
	if err := p.Check(false, "/nonexistent/path", []byte("anything"), false); err != nil {
		t.Fatalf("expected pinning disabled to always succeed, got %v", err)
	}
}
