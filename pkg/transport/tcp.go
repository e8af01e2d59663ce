package transport

import (
	"net"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pion/logging"
)

// Listen starts a TCP listener on addr. The caller accepts connections
// with the returned net.Listener and wraps each with NewConn before
// running the handshake; MPS is a single persistent stream per session,
// not a multiplexed per-peer manager, so this package stops at handing
// back a plain net.Listener.
func Listen(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// DialTCP opens a single TCP connection to addr and wraps it as an
// Adapter.
func DialTCP(addr string, loggerFactory logging.LoggerFactory) (*Conn, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, loggerFactory), nil
}

// BackoffConfig configures DialTCPWithBackoff's retry policy.
type BackoffConfig struct {
	// InitialInterval is the first retry delay. Default: 100ms.
	InitialInterval time.Duration
	// MaxInterval caps the exponential backoff delay. Default: 2s.
	MaxInterval time.Duration
	// MaxElapsedTime bounds total retry time before giving up. Default: 10s.
	MaxElapsedTime time.Duration
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.InitialInterval == 0 {
		c.InitialInterval = 100 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 2 * time.Second
	}
	if c.MaxElapsedTime == 0 {
		c.MaxElapsedTime = 10 * time.Second
	}
	return c
}

// DialTCPWithBackoff dials addr, retrying with exponential backoff on
// failure. This retries only the initial connect — once a session is
// established, the engine never retries a mid-session read/write (spec
// section 7's propagation policy).
func DialTCPWithBackoff(addr string, cfg BackoffConfig, loggerFactory logging.LoggerFactory) (*Conn, error) {
	if addr == "" {
		return nil, ErrInvalidAddress
	}
	cfg = cfg.withDefaults()

	var log logging.LeveledLogger
	if loggerFactory != nil {
		log = loggerFactory.NewLogger("transport")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = cfg.MaxElapsedTime

	var conn net.Conn
	op := func() error {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			if log != nil {
				log.Warnf("transport: dial %s failed, retrying: %v", addr, err)
			}
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	return NewConn(conn, loggerFactory), nil
}
