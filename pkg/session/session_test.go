package session

import (
	"sync"
	"testing"

	"github.com/mpsproto/mps/pkg/handshake"
	"github.com/mpsproto/mps/pkg/transport"
)

func newReadyPair(t *testing.T) (*Session, *Session) {
	t.Helper()

	cfg := handshake.DefaultConfig()
	cfg.FrameSize = 256
	cfg.KeySize = 512

	pipe := transport.NewPipe()
	t.Cleanup(func() { pipe.Close() })

	connA, connB := pipe.Conns(nil)

	initEngine, err := handshake.NewEngine(connA, cfg, handshake.KeyOptions{}, nil)
	if err != nil {
		t.Fatalf("new initiator engine: %v", err)
	}
	respEngine, err := handshake.NewEngine(connB, handshake.DefaultConfig(), handshake.KeyOptions{}, nil)
	if err != nil {
		t.Fatalf("new responder engine: %v", err)
	}

	var wg sync.WaitGroup
	var initErr, respErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		initErr = initEngine.RunInitiator()
	}()
	go func() {
		defer wg.Done()
		respErr = respEngine.RunResponder()
	}()
	wg.Wait()
	if initErr != nil {
		t.Fatalf("initiator handshake: %v", initErr)
	}
	if respErr != nil {
		t.Fatalf("responder handshake: %v", respErr)
	}

	initSess, err := New(initEngine, connA, nil)
	if err != nil {
		t.Fatalf("new initiator session: %v", err)
	}
	respSess, err := New(respEngine, connB, nil)
	if err != nil {
		t.Fatalf("new responder session: %v", err)
	}
	return initSess, respSess
}

func TestSessionSendRecvText(t *testing.T) {
	initSess, respSess := newReadyPair(t)

	var wg sync.WaitGroup
	var recvErr error
	var got string
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, recvErr = respSess.Recv(true)
	}()

	if err := initSess.Send("hello mps", true); err != nil {
		t.Fatalf("send: %v", err)
	}
	wg.Wait()

	if recvErr != nil {
		t.Fatalf("recv: %v", recvErr)
	}
	if got != "hello mps" {
		t.Fatalf("got %q, want %q", got, "hello mps")
	}
}

func TestSessionSendRecvTextUnencrypted(t *testing.T) {
	initSess, respSess := newReadyPair(t)

	var wg sync.WaitGroup
	var recvErr error
	var got string
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, recvErr = respSess.Recv(false)
	}()

	if err := initSess.Send("plain text", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	wg.Wait()

	if recvErr != nil {
		t.Fatalf("recv: %v", recvErr)
	}
	if got != "plain text" {
		t.Fatalf("got %q, want %q", got, "plain text")
	}
}

func TestSessionSendRecvRawUnencrypted(t *testing.T) {
	initSess, respSess := newReadyPair(t)

	payload := []byte{0x00, 0x01, 0xFF, 0xFE, 0x02}

	var wg sync.WaitGroup
	var recvErr error
	var got []byte
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, recvErr = respSess.RecvRaw(false)
	}()

	if err := initSess.SendRaw(payload, false); err != nil {
		t.Fatalf("send raw: %v", err)
	}
	wg.Wait()

	if recvErr != nil {
		t.Fatalf("recv raw: %v", recvErr)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %v, want %v", got, payload)
	}
}

func TestSessionMultiFramePayload(t *testing.T) {
	initSess, respSess := newReadyPair(t)

	big := make([]byte, 2000)
	for i := range big {
		big[i] = byte(i % 256)
	}

	var wg sync.WaitGroup
	var recvErr error
	var got []byte
	wg.Add(1)
	go func() {
		defer wg.Done()
		got, recvErr = respSess.RecvRaw(true)
	}()

	if err := initSess.SendRaw(big, true); err != nil {
		t.Fatalf("send raw: %v", err)
	}
	wg.Wait()

	if recvErr != nil {
		t.Fatalf("recv raw: %v", recvErr)
	}
	if len(got) != len(big) {
		t.Fatalf("got %d bytes, want %d", len(got), len(big))
	}
	for i := range big {
		if got[i] != big[i] {
			t.Fatalf("byte %d mismatch: got %x want %x", i, got[i], big[i])
		}
	}
}

func TestSessionIDStable(t *testing.T) {
	initSess, _ := newReadyPair(t)
	first := initSess.ID()
	second := initSess.ID()
	if first != second {
		t.Fatalf("ID() should be stable across calls")
	}
}

func TestSessionCloseIdempotentAndBlocksFurtherUse(t *testing.T) {
	initSess, _ := newReadyPair(t)

	if err := initSess.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := initSess.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}

	if err := initSess.Send("after close", true); err != ErrClosed {
		t.Fatalf("send after close = %v, want ErrClosed", err)
	}
}

func TestNewSessionRequiresReadyHandshake(t *testing.T) {
	cfg := handshake.DefaultConfig()
	pipe := transport.NewPipe()
	defer pipe.Close()
	connA, _ := pipe.Conns(nil)

	engine, err := handshake.NewEngine(connA, cfg, handshake.KeyOptions{}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	if _, err := New(engine, connA, nil); err != ErrNotReady {
		t.Fatalf("New on a fresh engine = %v, want ErrNotReady", err)
	}
}
