package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/test"
)

// Pipe provides an in-memory, bidirectional connection pair backed by
// pion's test.Bridge. Use it for deterministic, flaky-free handshake and
// session tests that exercise the real Adapter/frame/handshake code paths
// without opening real sockets — the same "virtual network" pattern the
// teacher's transport tests use.
//
// By default a Pipe auto-delivers queued packets in a background
// goroutine, so callers can treat it like a real blocking stream (which
// is what Adapter.RecvExact expects). Call SetAutoProcess(false) for
// manual, deterministic delivery in tests that assert on exact framing.
type Pipe struct {
	bridge *test.Bridge

	mu              sync.Mutex
	autoProcess     bool
	processInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

// NewPipe creates a new connected pair of in-memory endpoints with
// auto-processing enabled.
func NewPipe() *Pipe {
	p := &Pipe{
		bridge:          test.NewBridge(),
		processInterval: time.Millisecond,
	}
	p.SetAutoProcess(true)
	return p
}

// Conns returns both ends of the pipe, wrapped as Adapters.
func (p *Pipe) Conns(loggerFactory logging.LoggerFactory) (*Conn, *Conn) {
	return NewConn(p.bridge.GetConn0(), loggerFactory), NewConn(p.bridge.GetConn1(), loggerFactory)
}

// RawConns returns both ends of the pipe as plain net.Conn, for callers
// that want to drive the bridge manually.
func (p *Pipe) RawConns() (net.Conn, net.Conn) {
	return p.bridge.GetConn0(), p.bridge.GetConn1()
}

// SetAutoProcess enables or disables background delivery of queued
// packets. Disable it for tests that need to control delivery order
// precisely; re-enable it to resume normal blocking-stream behavior.
func (p *Pipe) SetAutoProcess(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.autoProcess == enabled {
		return
	}
	p.autoProcess = enabled

	if enabled {
		p.stopCh = make(chan struct{})
		p.wg.Add(1)
		go p.runAutoProcess(p.stopCh)
		return
	}

	close(p.stopCh)
	p.wg.Wait()
}

func (p *Pipe) runAutoProcess(stopCh chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.processInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.bridge.Tick()
		}
	}
}

// Tick delivers one queued packet in each direction, if available.
// Returns the number of packets delivered.
func (p *Pipe) Tick() int {
	return p.bridge.Tick()
}

// Process delivers all queued packets in both directions until the pipe
// is drained.
func (p *Pipe) Process() int {
	total := 0
	for {
		n := p.Tick()
		if n == 0 {
			return total
		}
		total += n
	}
}

// Close stops auto-processing and closes both endpoints of the pipe.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.autoProcess {
		p.autoProcess = false
		close(p.stopCh)
	}
	p.mu.Unlock()
	p.wg.Wait()

	err0 := p.bridge.GetConn0().Close()
	err1 := p.bridge.GetConn1().Close()
	if err0 != nil {
		return err0
	}
	return err1
}
