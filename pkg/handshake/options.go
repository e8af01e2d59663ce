package handshake

// KeyOptions configures the key store and pinning policy (spec section
// 4.5 / 6): ConstKey/KeyFile enable persistent local keypair storage;
// SavePub/PubFile enable trust-on-first-use pinning of the peer's public
// key (responder side only); ConsoleLog emits one diagnostic line on a
// pinning mismatch.
type KeyOptions struct {
	ConstKey   bool
	KeyFile    string
	SavePub    bool
	PubFile    string
	ConsoleLog bool
}
