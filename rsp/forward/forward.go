package forward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/danielpaulus/go-rspstub/rsp"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Forwarder accepts debuggers on a local port, connects each of them to the target stub
// and logs every packet and acknowledgement passing through.
type Forwarder struct {
	listener   net.Listener
	target     string
	packetSize int
	wg         sync.WaitGroup
}

// Listen binds listenAddr. Nothing is accepted before Serve is called.
func Listen(ctx context.Context, listenAddr string, target string, packetSize int) (*Forwarder, error) {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("Listen: failed to listen on %s: %w", listenAddr, err)
	}
	log.Infof("Start listening on %s forwarding to %s", l.Addr(), target)
	return &Forwarder{listener: l, target: target, packetSize: packetSize}, nil
}

// Addr is the address debuggers should connect to.
func (f *Forwarder) Addr() net.Addr {
	return f.listener.Addr()
}

// Serve accepts connections until ctx is done or the listener is closed. It waits for
// running sessions to end before returning.
func (f *Forwarder) Serve(ctx context.Context) error {
	defer f.wg.Wait()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			f.listener.Close()
		case <-done:
		}
	}()
	for {
		clientConn, err := f.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("Serve: accept failed: %w", err)
		}
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			f.proxy(ctx, clientConn)
		}()
	}
}

// Close stops accepting new debuggers.
func (f *Forwarder) Close() error {
	return f.listener.Close()
}

func (f *Forwarder) proxy(ctx context.Context, clientConn net.Conn) {
	logger := log.WithFields(log.Fields{"session": uuid.New().String(), "debugger": clientConn.RemoteAddr().String()})
	var d net.Dialer
	stubConn, err := d.DialContext(ctx, "tcp", f.target)
	if err != nil {
		logger.WithError(err).Errorf("could not connect to stub at %s", f.target)
		clientConn.Close()
		return
	}
	logger.WithField("stub", f.target).Info("new debugger connected")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pipe(stubConn, clientConn, NewTracer(logger.WithField("direction", "debugger2stub"), f.packetSize))
	}()
	go func() {
		defer wg.Done()
		pipe(clientConn, stubConn, NewTracer(logger.WithField("direction", "stub2debugger"), f.packetSize))
	}()
	wg.Wait()
	logger.Info("session closed")
}

// pipe copies src to dst through the tracer and closes both ends when src is drained,
// which also ends the copy running in the other direction.
func pipe(dst net.Conn, src net.Conn, t *Tracer) {
	_, err := io.Copy(dst, io.TeeReader(src, t))
	if err != nil && !errors.Is(err, net.ErrClosed) {
		t.log.WithError(err).Debug("copy ended")
	}
	dst.Close()
	src.Close()
}

// Tracer is an io.Writer that decodes the byte stream written to it and logs packets
// and acknowledgements. It never fails, so it can sit in a TeeReader.
type Tracer struct {
	pkt *rsp.Packet
	dec *rsp.Decoder
	log *log.Entry
}

// NewTracer creates a Tracer that logs through logger.
func NewTracer(logger *log.Entry, packetSize int) *Tracer {
	pkt := rsp.NewPacket(packetSize)
	return &Tracer{pkt: pkt, dec: rsp.NewDecoder(pkt), log: logger}
}

func (t *Tracer) Write(p []byte) (int, error) {
	for _, b := range p {
		if t.dec.State() == rsp.StateSeekStart {
			switch b {
			case '+':
				t.log.Debug("ack")
				continue
			case '-':
				t.log.Info("nack")
				continue
			}
		}
		switch t.dec.Feed(b) {
		case rsp.StepComplete:
			t.log.WithField("len", t.pkt.Len()).Info(t.pkt.String())
		case rsp.StepMismatch:
			computed, received := t.dec.Checksums()
			t.log.Warnf("bad checksum: computed 0x%02x, received 0x%02x", computed, received)
		case rsp.StepOverflow:
			t.log.Warnf("packet longer than %d bytes, not traced", t.pkt.MaxLen())
		}
	}
	return len(p), nil
}
