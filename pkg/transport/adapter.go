// Package transport provides the MPS transport adapter: a thin wrapper
// over a reliable byte-stream that hides partial reads and writes from
// the rest of the protocol engine (spec section 4.1).
package transport

import (
	"io"
	"net"
	"sync"

	"github.com/pion/logging"
)

// Adapter is the contract the frame codec and handshake engine rely on.
// SendAll writes every byte of buf before returning; RecvExact returns
// exactly n bytes or fails with ErrClosed. Both are total operations —
// callers never see short reads or writes.
type Adapter interface {
	SendAll(buf []byte) error
	RecvExact(n int) ([]byte, error)
	Close() error
}

// Conn wraps a net.Conn as an Adapter. It loops internally over partial
// reads and writes so the rest of the engine never has to.
type Conn struct {
	conn net.Conn
	log  logging.LeveledLogger

	mu     sync.Mutex
	closed bool
}

// NewConn wraps conn as a transport Adapter. loggerFactory may be nil, in
// which case diagnostics are discarded.
func NewConn(conn net.Conn, loggerFactory logging.LoggerFactory) *Conn {
	c := &Conn{conn: conn}
	if loggerFactory != nil {
		c.log = loggerFactory.NewLogger("transport")
	}
	return c
}

// SendAll writes every byte of buf, looping over partial writes.
func (c *Conn) SendAll(buf []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	for len(buf) > 0 {
		n, err := c.conn.Write(buf)
		if err != nil {
			return ErrClosed
		}
		buf = buf[n:]
	}
	return nil
}

// RecvExact reads exactly n bytes, looping over partial reads. It returns
// ErrClosed if the stream ends or errors before n bytes are available.
func (c *Conn) RecvExact(n int) ([]byte, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return nil, ErrClosed
	}
	return buf, nil
}

// Close closes the underlying connection. Idempotent: calling it twice
// has the same effect as calling it once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.log != nil {
		c.log.Info("transport: closing connection")
	}
	return c.conn.Close()
}

// LocalAddr returns the local network address of the wrapped connection.
func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the remote network address of the wrapped connection.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

var _ Adapter = (*Conn)(nil)
