// mps-echo is a minimal MPS peer: it either listens for connections, serving
// each one concurrently and echoing every message it receives back to the
// sender, or dials a listening
// peer and sends lines read from stdin, printing whatever comes back.
//
// Usage:
//
//	mps-echo -listen -addr :8787
//	mps-echo -addr peer-host:8787
//
// Options:
//
//	-listen        run as the responder (default: initiator)
//	-addr          address to listen on or dial (default: :8787)
//	-proto         proto_name advertised during the handshake (default: mps)
//	-frame-size    negotiated frame_size (default: 1000)
//	-key-size      RSA key_size in bits (default: 512)
//	-const-key     persist the local keypair across runs
//	-key-file      local keypair file path (default: .mps.chain)
//	-pin           pin the peer's public key on first use (responder only)
//	-pub-file      pinned peer fingerprint file path (default: .mps.pub_d)
//	-advertise     advertise this endpoint over mDNS (responder only)
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/pion/logging"

	"github.com/mpsproto/mps/pkg/discovery"
	"github.com/mpsproto/mps/pkg/handshake"
	"github.com/mpsproto/mps/pkg/session"
	"github.com/mpsproto/mps/pkg/transport"
)

func main() {
	listen := flag.Bool("listen", false, "run as the responder")
	addr := flag.String("addr", ":8787", "address to listen on or dial")
	protoName := flag.String("proto", handshake.DefaultProtoName, "proto_name advertised during the handshake")
	frameSize := flag.Int("frame-size", handshake.DefaultFrameSize, "negotiated frame_size")
	keySize := flag.Int("key-size", handshake.DefaultKeySize, "RSA key_size in bits")
	constKey := flag.Bool("const-key", false, "persist the local keypair across runs")
	keyFile := flag.String("key-file", ".mps.chain", "local keypair file path")
	pin := flag.Bool("pin", false, "pin the peer's public key on first use (responder only)")
	pubFile := flag.String("pub-file", ".mps.pub_d", "pinned peer fingerprint file path")
	advertise := flag.Bool("advertise", false, "advertise this endpoint over mDNS (responder only)")
	flag.Parse()

	loggerFactory := logging.NewDefaultLoggerFactory()
	log.SetFlags(0)

	cfg := handshake.DefaultConfig()
	cfg.ProtoName = *protoName
	cfg.FrameSize = *frameSize
	cfg.KeySize = *keySize

	opts := handshake.KeyOptions{
		ConstKey:   *constKey,
		KeyFile:    *keyFile,
		SavePub:    *pin,
		PubFile:    *pubFile,
		ConsoleLog: true,
	}

	if *listen {
		if err := runResponder(*addr, cfg, opts, *advertise, loggerFactory); err != nil {
			log.Fatalf("mps-echo: %v", err)
		}
		return
	}
	if err := runInitiator(*addr, cfg, opts, loggerFactory); err != nil {
		log.Fatalf("mps-echo: %v", err)
	}
}

func runResponder(addr string, cfg handshake.Config, opts handshake.KeyOptions, advertise bool, loggerFactory logging.LoggerFactory) error {
	listener, err := transport.Listen(addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer listener.Close()

	if advertise {
		port, err := portFromListener(listener)
		if err != nil {
			return err
		}
		adv, err := discovery.NewAdvertiser(discovery.AdvertiserConfig{
			Port:          port,
			ProtoName:     cfg.ProtoName,
			KeySize:       cfg.KeySize,
			LoggerFactory: loggerFactory,
		})
		if err != nil {
			return fmt.Errorf("advertiser: %w", err)
		}
		if err := adv.Start(); err != nil {
			return fmt.Errorf("advertiser start: %w", err)
		}
		defer adv.Close()
		log.Printf("mps-echo: advertising as %s", adv.InstanceName())
	}

	log.Printf("mps-echo: listening on %s", addr)
	for {
		netConn, err := listener.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go func() {
			if err := serveConn(netConn, cfg, opts, loggerFactory); err != nil {
				log.Printf("mps-echo: connection error: %v", err)
			}
		}()
	}
}

func serveConn(netConn net.Conn, cfg handshake.Config, opts handshake.KeyOptions, loggerFactory logging.LoggerFactory) error {
	conn := transport.NewConn(netConn, loggerFactory)
	engine, err := handshake.NewEngine(conn, cfg, opts, loggerFactory)
	if err != nil {
		return fmt.Errorf("new engine: %w", err)
	}
	if err := engine.RunResponder(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	sess, err := session.New(engine, conn, loggerFactory)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	defer sess.Close()

	log.Printf("mps-echo: session %s ready (frame_size=%d key_size=%d)",
		sess.ID(), sess.Params().FrameSize, sess.Params().KeySize)

	for {
		text, err := sess.Recv(true)
		if err != nil {
			return err
		}
		log.Printf("mps-echo: recv %q", text)
		if err := sess.Send(text, true); err != nil {
			return err
		}
	}
}

func runInitiator(addr string, cfg handshake.Config, opts handshake.KeyOptions, loggerFactory logging.LoggerFactory) error {
	conn, err := transport.DialTCP(addr, loggerFactory)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	engine, err := handshake.NewEngine(conn, cfg, opts, loggerFactory)
	if err != nil {
		return fmt.Errorf("new engine: %w", err)
	}
	if err := engine.RunInitiator(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	sess, err := session.New(engine, conn, loggerFactory)
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	defer sess.Close()

	log.Printf("mps-echo: session %s ready (frame_size=%d key_size=%d)",
		sess.ID(), sess.Params().FrameSize, sess.Params().KeySize)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if err := sess.Send(line, true); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		reply, err := sess.Recv(true)
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}

func portFromListener(l net.Listener) (int, error) {
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("listener address %v is not a TCP address", l.Addr())
	}
	return tcpAddr.Port, nil
}
