package discovery

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver is an in-memory MDNSResolver for tests that exercise
// Resolver.Browse/Lookup without touching the real network.
type MockMDNSResolver struct {
	mu      sync.RWMutex
	entries []*zeroconf.ServiceEntry
}

// NewMockMDNSResolver creates an empty mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{}
}

// RegisterPeer adds an entry that Browse/Lookup will return.
func (m *MockMDNSResolver) RegisterPeer(entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Browse implements MDNSResolver.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	snapshot := make([]*zeroconf.ServiceEntry, len(m.entries))
	copy(snapshot, m.entries)
	m.mu.RUnlock()

	for _, entry := range snapshot {
		select {
		case entries <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Lookup implements MDNSResolver.
func (m *MockMDNSResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.entries {
		if entry.Instance == instance {
			select {
			case entries <- entry:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}
	}
	return nil
}

// MockPeerEntry builds a service entry for tests, as if a peer with the
// given instance name had registered via Advertiser.
func MockPeerEntry(instanceName string, port int, ip net.IP, protoName string, keySize int) *zeroconf.ServiceEntry {
	return &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: instanceName,
			Service:  ServiceType,
			Domain:   DefaultDomain,
		},
		HostName: instanceName + ".local.",
		Port:     port,
		AddrIPv4: []net.IP{ip},
		Text: []string{
			"proto=" + protoName,
			"key_size=" + strconv.Itoa(keySize),
		},
	}
}
