// Package discovery advertises and resolves MPS peers on the local network
// via DNS-SD/mDNS (spec section 4.7, a Go-native addition: the protocol
// itself is transport-agnostic, but a TCP deployment needs some way for an
// initiator to find a responder's address and port). One MPS endpoint is
// published as a single "_mps._tcp" service instance; TXT records advertise
// the handshake-negotiated proto_name and key_size so a browser can filter
// compatible peers before dialing.
package discovery

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/pion/logging"
)

// DefaultPort is the default MPS TCP port.
const DefaultPort = 8787

// ServiceType is the DNS-SD service string advertised for MPS endpoints.
const ServiceType = "_mps._tcp"

// DefaultDomain is the mDNS domain used for browsing and registration.
const DefaultDomain = "local."

// MDNSServer is the interface for mDNS service registration, letting
// tests substitute a fake in place of the real zeroconf responder.
type MDNSServer interface {
	Shutdown()
}

// MDNSServerFactory creates MDNSServer instances.
type MDNSServerFactory interface {
	Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error)
}

type zeroconfServerFactory struct{}

func (z *zeroconfServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (MDNSServer, error) {
	return zeroconf.Register(instance, service, domain, port, txt, ifaces)
}

// AddressFamily selects which local address family is placed in the TXT
// record's addr= field when advertising.
type AddressFamily int

const (
	// AddressFamilyAny accepts either IPv4 or IPv6, preferring whichever
	// SortIPsByPreference ranks first.
	AddressFamilyAny AddressFamily = iota
	AddressFamilyIPv4
	AddressFamilyIPv6
)

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// InstanceName identifies this peer. If empty, a random 16-hex-digit
	// name is generated.
	InstanceName string

	// Port is the TCP port the peer is listening on.
	Port int

	// ProtoName and KeySize are published as TXT records so a browser
	// can pick a compatible peer before dialing (spec section 3).
	ProtoName string
	KeySize   int

	// AddressFamily restricts the addr= TXT record (see AddressSource)
	// to one IP family. Defaults to AddressFamilyAny.
	AddressFamily AddressFamily

	// AddressSource resolves the local addresses considered for the
	// advertised addr= TXT record, most-preferred first after filtering
	// by AddressFamily. Defaults to LocalAddresses; tests substitute a
	// fixed list. No addr= record is published if it returns none.
	AddressSource func() ([]net.IP, error)

	// Interfaces restricts advertising to specific network interfaces.
	// Nil advertises on all of them.
	Interfaces []net.Interface

	// ServerFactory overrides the zeroconf registrar; nil uses the real
	// one.
	ServerFactory MDNSServerFactory

	LoggerFactory logging.LoggerFactory
}

// Advertiser publishes one MPS endpoint's DNS-SD record. Construct one per
// listening peer; Close stops advertising.
type Advertiser struct {
	config AdvertiserConfig
	log    logging.LeveledLogger

	mu           sync.Mutex
	server       MDNSServer
	instanceName string
	closed       bool
}

// NewAdvertiser creates an Advertiser from config but does not start
// advertising; call Start.
func NewAdvertiser(config AdvertiserConfig) (*Advertiser, error) {
	if config.Port <= 0 || config.Port > 65535 {
		config.Port = DefaultPort
	}
	if config.ServerFactory == nil {
		config.ServerFactory = &zeroconfServerFactory{}
	}
	if config.AddressSource == nil {
		config.AddressSource = LocalAddresses
	}

	a := &Advertiser{config: config}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("discovery")
	}
	return a, nil
}

// Start registers the mDNS service record. Returns ErrAlreadyStarted if
// called twice.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.server != nil {
		return ErrAlreadyStarted
	}

	instanceName := a.config.InstanceName
	if instanceName == "" {
		var err error
		instanceName, err = randomInstanceName()
		if err != nil {
			return err
		}
	}

	txt := []string{
		fmt.Sprintf("proto=%s", a.config.ProtoName),
		fmt.Sprintf("key_size=%d", a.config.KeySize),
	}

	addrs, err := a.config.AddressSource()
	if err != nil {
		if a.log != nil {
			a.log.Warnf("discovery: could not determine local addresses: %v", err)
		}
	} else {
		switch a.config.AddressFamily {
		case AddressFamilyIPv4:
			addrs = FilterIPv4(addrs)
		case AddressFamilyIPv6:
			addrs = FilterIPv6(addrs)
		}
		addrs = SortIPsByPreference(addrs)
		if len(addrs) > 0 {
			txt = append(txt, fmt.Sprintf("addr=%s", addrs[0].String()))
		}
	}

	if a.log != nil {
		a.log.Infof("discovery: registering %s as %s on port %d", instanceName, ServiceType, a.config.Port)
	}

	server, err := a.config.ServerFactory.Register(
		instanceName, ServiceType, DefaultDomain, a.config.Port, txt, a.config.Interfaces,
	)
	if err != nil {
		return fmt.Errorf("discovery: mDNS registration failed: %w", err)
	}

	a.server = server
	a.instanceName = instanceName
	return nil
}

// InstanceName returns the active registration's instance name, or "" if
// not started.
func (a *Advertiser) InstanceName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.instanceName
}

// Close stops advertising. Idempotent.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
	return nil
}

func randomInstanceName() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016X", binary.BigEndian.Uint64(buf[:])), nil
}

// AdvertiserWithContext stops advertising automatically when ctx is
// cancelled, for callers that model a peer's lifetime with a context.
type AdvertiserWithContext struct {
	*Advertiser
	cancel context.CancelFunc
}

// NewAdvertiserWithContext creates and starts an Advertiser bound to ctx's
// lifetime.
func NewAdvertiserWithContext(ctx context.Context, config AdvertiserConfig) (*AdvertiserWithContext, error) {
	adv, err := NewAdvertiser(config)
	if err != nil {
		return nil, err
	}
	if err := adv.Start(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	awc := &AdvertiserWithContext{Advertiser: adv, cancel: cancel}

	go func() {
		<-ctx.Done()
		adv.Close()
	}()

	return awc, nil
}

// Close cancels the context and stops advertising.
func (a *AdvertiserWithContext) Close() error {
	a.cancel()
	return a.Advertiser.Close()
}
