package transport

import (
	"testing"
)

func TestPipeSendRecvExact(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	c0, c1 := p.Conns(nil)

	payload := []byte("hello, mps")
	done := make(chan error, 1)
	go func() {
		done <- c0.SendAll(payload)
	}()

	got, err := c1.RecvExact(len(payload))
	if err != nil {
		t.Fatalf("RecvExact: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("SendAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestConnCloseIdempotent(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	c0, _ := p.Conns(nil)
	if err := c0.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c0.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestConnRecvExactAfterClose(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	c0, _ := p.Conns(nil)
	if err := c0.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := c0.RecvExact(1); err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}
