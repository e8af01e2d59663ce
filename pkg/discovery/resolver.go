package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// DefaultBrowseTimeout is the default timeout for Browse.
const DefaultBrowseTimeout = 10 * time.Second

// DefaultLookupTimeout is the default timeout for Lookup.
const DefaultLookupTimeout = 5 * time.Second

// Peer describes one discovered MPS endpoint.
type Peer struct {
	InstanceName string
	HostName     string
	Port         int
	IPs          []net.IP
	ProtoName    string
	KeySize      int
}

// PreferredIP returns the most preferred address, or nil if none were
// resolved.
func (p *Peer) PreferredIP() net.IP {
	if len(p.IPs) > 0 {
		return p.IPs[0]
	}
	return nil
}

// MDNSResolver is the interface for mDNS service resolution, letting tests
// substitute a fake in place of the real zeroconf resolver.
type MDNSResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
	Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

type zeroconfResolver struct {
	resolver *zeroconf.Resolver
}

func newZeroconfResolver() (*zeroconfResolver, error) {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, err
	}
	return &zeroconfResolver{resolver: r}, nil
}

func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Browse(ctx, service, domain, entries)
}

func (z *zeroconfResolver) Lookup(ctx context.Context, instance, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	return z.resolver.Lookup(ctx, instance, service, domain, entries)
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	MDNSResolver  MDNSResolver
	BrowseTimeout time.Duration
	LookupTimeout time.Duration
}

// Resolver discovers MPS peers via DNS-SD.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
}

// NewResolver creates a Resolver, defaulting to the real zeroconf resolver
// and spec-reasonable timeouts.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	resolver := config.MDNSResolver
	if resolver == nil {
		zr, err := newZeroconfResolver()
		if err != nil {
			return nil, err
		}
		resolver = zr
	}
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}

	return &Resolver{config: config, resolver: resolver}, nil
}

// Browse discovers MPS peers on the network. The returned channel closes
// when the context is cancelled, the browse timeout expires, or the
// underlying MDNSResolver's Browse returns.
func (r *Resolver) Browse(ctx context.Context) (<-chan Peer, error) {
	results := make(chan Peer)
	entries := make(chan *zeroconf.ServiceEntry)

	cancel := context.CancelFunc(func() {})
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, r.config.BrowseTimeout)
	}

	go func() {
		defer cancel()
		defer close(results)

		go func() {
			defer close(entries)
			r.resolver.Browse(ctx, ServiceType, DefaultDomain, entries)
		}()

		for entry := range entries {
			select {
			case results <- entryToPeer(entry):
			case <-ctx.Done():
				return
			}
		}
	}()

	return results, nil
}

// Lookup resolves one specific peer by its instance name.
func (r *Resolver) Lookup(ctx context.Context, instanceName string) (*Peer, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.LookupTimeout)
		defer cancel()
	}

	entries := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(entries)
		r.resolver.Lookup(ctx, instanceName, ServiceType, DefaultDomain, entries)
	}()

	select {
	case entry, ok := <-entries:
		if !ok || entry == nil {
			return nil, ErrServiceNotFound
		}
		peer := entryToPeer(entry)
		return &peer, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func entryToPeer(entry *zeroconf.ServiceEntry) Peer {
	var allIPs []net.IP
	allIPs = append(allIPs, entry.AddrIPv6...)
	allIPs = append(allIPs, entry.AddrIPv4...)

	peer := Peer{
		InstanceName: entry.Instance,
		HostName:     entry.HostName,
		Port:         entry.Port,
		IPs:          SortIPsByPreference(allIPs),
	}

	for _, kv := range entry.Text {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "proto":
			peer.ProtoName = v
		case "key_size":
			if n, err := strconv.Atoi(v); err == nil {
				peer.KeySize = n
			}
		}
	}

	return peer
}
