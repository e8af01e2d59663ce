package discovery

import (
	"context"
	"net"
	"strings"
	"testing"
)

type fakeServer struct{ shutdownCalled bool }

func (f *fakeServer) Shutdown() { f.shutdownCalled = true }

type fakeServerFactory struct {
	lastInstance string
	lastService  string
	lastPort     int
	lastTXT      []string
	server       *fakeServer
}

func (f *fakeServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	f.lastInstance = instance
	f.lastService = service
	f.lastPort = port
	f.lastTXT = txt
	f.server = &fakeServer{}
	return f.server, nil
}

func TestAdvertiserStartRegistersExpectedRecord(t *testing.T) {
	factory := &fakeServerFactory{}
	adv, err := NewAdvertiser(AdvertiserConfig{
		InstanceName:  "TESTPEER01",
		Port:          9000,
		ProtoName:     "mps",
		KeySize:       512,
		ServerFactory: factory,
	})
	if err != nil {
		t.Fatalf("new advertiser: %v", err)
	}

	if err := adv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if factory.lastInstance != "TESTPEER01" {
		t.Fatalf("instance = %q, want TESTPEER01", factory.lastInstance)
	}
	if factory.lastService != ServiceType {
		t.Fatalf("service = %q, want %q", factory.lastService, ServiceType)
	}
	if factory.lastPort != 9000 {
		t.Fatalf("port = %d, want 9000", factory.lastPort)
	}

	if err := adv.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second start = %v, want ErrAlreadyStarted", err)
	}

	if err := adv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !factory.server.shutdownCalled {
		t.Fatalf("expected Close to shut down the mDNS server")
	}
	if err := adv.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}
}

func TestAdvertiserIncludesFilteredLocalAddress(t *testing.T) {
	factory := &fakeServerFactory{}
	fixed := []net.IP{
		net.ParseIP("2001:db8::1"),
		net.ParseIP("192.168.1.50"),
	}
	adv, err := NewAdvertiser(AdvertiserConfig{
		InstanceName:  "ADDRTEST",
		Port:          9002,
		AddressFamily: AddressFamilyIPv4,
		AddressSource: func() ([]net.IP, error) { return fixed, nil },
		ServerFactory: factory,
	})
	if err != nil {
		t.Fatalf("new advertiser: %v", err)
	}
	if err := adv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	var gotAddr string
	for _, kv := range factory.lastTXT {
		if strings.HasPrefix(kv, "addr=") {
			gotAddr = strings.TrimPrefix(kv, "addr=")
		}
	}
	if gotAddr != "192.168.1.50" {
		t.Fatalf("addr TXT = %q, want 192.168.1.50 (IPv4 filtered out of the mixed list)", gotAddr)
	}
}

func TestAdvertiserRandomInstanceNameWhenUnset(t *testing.T) {
	factory := &fakeServerFactory{}
	adv, err := NewAdvertiser(AdvertiserConfig{Port: 9001, ServerFactory: factory})
	if err != nil {
		t.Fatalf("new advertiser: %v", err)
	}
	if err := adv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(adv.InstanceName()) != 16 {
		t.Fatalf("expected a 16-hex-digit generated instance name, got %q", adv.InstanceName())
	}
}

func TestResolverBrowseReturnsRegisteredPeers(t *testing.T) {
	mock := NewMockMDNSResolver()
	mock.RegisterPeer(MockPeerEntry("PEERONE", 9000, net.ParseIP("192.168.1.10"), "mps", 512))

	resolver, err := NewResolver(ResolverConfig{MDNSResolver: mock})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	results, err := resolver.Browse(ctx)
	if err != nil {
		t.Fatalf("browse: %v", err)
	}

	peer, ok := <-results
	if !ok {
		t.Fatalf("expected at least one peer")
	}
	if peer.InstanceName != "PEERONE" {
		t.Fatalf("instance = %q, want PEERONE", peer.InstanceName)
	}
	if peer.ProtoName != "mps" || peer.KeySize != 512 {
		t.Fatalf("txt decode mismatch: proto=%q key_size=%d", peer.ProtoName, peer.KeySize)
	}
	cancel()
}

func TestResolverLookupNotFound(t *testing.T) {
	mock := NewMockMDNSResolver()
	resolver, err := NewResolver(ResolverConfig{MDNSResolver: mock})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	_, err = resolver.Lookup(context.Background(), "MISSING")
	if err != ErrServiceNotFound {
		t.Fatalf("lookup of missing peer = %v, want ErrServiceNotFound", err)
	}
}

func TestResolverLookupFindsRegisteredPeer(t *testing.T) {
	mock := NewMockMDNSResolver()
	mock.RegisterPeer(MockPeerEntry("PEERTWO", 9100, net.ParseIP("10.0.0.5"), "mps", 1024))

	resolver, err := NewResolver(ResolverConfig{MDNSResolver: mock})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	peer, err := resolver.Lookup(context.Background(), "PEERTWO")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if peer.Port != 9100 {
		t.Fatalf("port = %d, want 9100", peer.Port)
	}
	if peer.PreferredIP() == nil {
		t.Fatalf("expected a resolved address")
	}
}
