package rsp

import (
	"context"
	"net"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultService is the service name looked up when a connection is created by name
// without giving one.
const DefaultService = "gdb"

// Connection accepts exactly one debugger on a TCP port and exchanges packets with it.
// It is owned by a single goroutine, nothing in here is safe for concurrent use.
type Connection struct {
	port     int
	service  string
	host     string
	onListen func(net.Addr)
	accept   func(net.Listener) (net.Conn, error)
	log      *log.Entry

	conn    net.Conn
	channel *Channel
	codec   *Codec
	session uuid.UUID
}

// Option configures a Connection.
type Option func(*Connection)

// WithListenHost binds to host instead of the wildcard address.
func WithListenHost(host string) Option {
	return func(c *Connection) {
		c.host = host
	}
}

// WithListenHook registers f to be called with the bound address right before Connect
// starts waiting for a client. Useful when listening on port 0.
func WithListenHook(f func(net.Addr)) Option {
	return func(c *Connection) {
		c.onListen = f
	}
}

// WithLogger sets the log entry used for this connection.
func WithLogger(entry *log.Entry) Option {
	return func(c *Connection) {
		c.log = entry
	}
}

// NewConnection creates an unconnected Connection for the given port. Port 0 lets the
// operating system pick one.
func NewConnection(port int, opts ...Option) *Connection {
	return newConnection(port, "", opts)
}

// NewServiceConnection creates an unconnected Connection whose port is looked up from the
// service name when Connect is called.
func NewServiceConnection(service string, opts ...Option) *Connection {
	if service == "" {
		service = DefaultService
	}
	return newConnection(0, service, opts)
}

func newConnection(port int, service string, opts []Option) *Connection {
	c := &Connection{port: port, service: service, accept: net.Listener.Accept}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.NewEntry(log.StandardLogger())
	}
	c.channel = NewChannel(nil, c.log)
	c.codec = NewCodec(c.channel, c.log)
	return c
}

// Connect listens on the configured port and blocks until one debugger connects.
//
// A *SetupError means the port could not be resolved or bound and there is no point in
// trying again. An *AcceptError means accepting failed, calling Connect again is fine.
// If ctx is cancelled while waiting, ctx.Err() is returned.
func (c *Connection) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}
	if c.service != "" {
		port, err := net.DefaultResolver.LookupPort(ctx, "tcp", c.service)
		if err != nil {
			c.log.WithError(err).Errorf("RSP unable to find service %q", c.service)
			return &SetupError{Op: "resolve " + c.service, Err: err}
		}
		c.port = port
		c.service = ""
	}

	listener, err := listenTCP(ctx, c.host, c.port)
	if err != nil {
		c.log.WithError(err).Error("Cannot listen on RSP socket")
		return &SetupError{Op: "listen", Err: err}
	}
	// Only one client is ever served, the listener goes away in every case.
	defer listener.Close()

	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		c.port = addr.Port
	}
	c.log.WithField("port", c.port).Infof("Listening for RSP on port %d", c.port)
	if c.onListen != nil {
		c.onListen(listener.Addr())
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			listener.Close()
		case <-done:
		}
	}()

	conn, err := c.accept(listener)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("Failed to accept RSP client")
		return &AcceptError{Err: err}
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			c.log.WithError(err).Warn("Failed to enable keep alive on RSP client")
		}
		if err := tcpConn.SetNoDelay(true); err != nil {
			c.log.WithError(err).Warn("Failed to disable Nagle on RSP client")
		}
	}
	ignoreBrokenPipe()

	c.session = uuid.New()
	logger := c.log.WithFields(log.Fields{"session": c.session.String(), "remote": conn.RemoteAddr().String()})
	logger.Infof("Remote debugging from host %s", hostOf(conn.RemoteAddr()))
	c.conn = conn
	c.channel = NewChannel(conn, logger)
	c.codec = NewCodec(c.channel, logger)
	return nil
}

// Close closes the client socket. It is safe to call on a connection that was never
// connected or is already closed.
func (c *Connection) Close() error {
	if !c.IsConnected() {
		return nil
	}
	c.log.WithField("session", c.session.String()).Info("Closing connection")
	err := c.conn.Close()
	c.conn = nil
	c.channel = NewChannel(nil, c.log)
	c.codec = NewCodec(c.channel, c.log)
	return err
}

// IsConnected reports whether a client is attached.
func (c *Connection) IsConnected() bool {
	return c.conn != nil
}

// GetPacket blocks until the next valid packet from the client is stored in pkt.
func (c *Connection) GetPacket(pkt *Packet) error {
	return c.codec.Receive(pkt)
}

// PutPacket sends pkt to the client and waits for its acknowledgement.
func (c *Connection) PutPacket(pkt *Packet) error {
	return c.codec.Send(pkt)
}

// Port returns the configured port, or the bound one once Connect got that far.
func (c *Connection) Port() int {
	return c.port
}

// Session identifies the currently accepted client in logs.
func (c *Connection) Session() uuid.UUID {
	return c.session
}

// Conn returns the client socket, nil if not connected. Closing it from another
// goroutine is the way to abort a blocked GetPacket or PutPacket.
func (c *Connection) Conn() net.Conn {
	return c.conn
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
