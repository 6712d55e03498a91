package rsp

import (
	"context"
	"fmt"
	"io"
	"net"

	log "github.com/sirupsen/logrus"
)

// Client is the debugger side of a connection. It frames, acknowledges and retransmits
// exactly like the stub side, so it can talk to a Connection or to any other stub.
type Client struct {
	rw    io.ReadWriter
	codec *Codec
	rx    *Packet
	tx    *Packet
}

// Dial connects to a stub listening on address.
func Dial(ctx context.Context, address string, packetSize int) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("Dial: failed to connect to %s: %w", address, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		err = tcpConn.SetNoDelay(true)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("Dial: failed to disable Nagle: %w", err)
		}
	}
	return NewClient(conn, packetSize), nil
}

// NewClient wraps an already connected stream.
func NewClient(rw io.ReadWriter, packetSize int) *Client {
	logger := log.WithField("stub", remoteName(rw))
	return &Client{
		rw:    rw,
		codec: NewCodec(NewChannel(rw, logger), logger),
		rx:    NewPacket(packetSize),
		tx:    NewPacket(packetSize),
	}
}

// Send transmits payload and waits until the stub acknowledged it.
func (c *Client) Send(payload string) error {
	if err := c.tx.SetString(payload); err != nil {
		return err
	}
	return c.codec.Send(c.tx)
}

// Recv waits for the next packet from the stub.
func (c *Client) Recv() (string, error) {
	if err := c.codec.Receive(c.rx); err != nil {
		return "", err
	}
	return c.rx.String(), nil
}

// Request sends payload and returns the stub's reply.
func (c *Client) Request(payload string) (string, error) {
	if err := c.Send(payload); err != nil {
		return "", err
	}
	return c.Recv()
}

// GetPacket implements PacketConn.
func (c *Client) GetPacket(pkt *Packet) error {
	return c.codec.Receive(pkt)
}

// PutPacket implements PacketConn.
func (c *Client) PutPacket(pkt *Packet) error {
	return c.codec.Send(pkt)
}

// Close closes the underlying stream if it can be closed.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func remoteName(rw io.ReadWriter) string {
	if conn, ok := rw.(net.Conn); ok && conn.RemoteAddr() != nil {
		return conn.RemoteAddr().String()
	}
	return fmt.Sprintf("%T", rw)
}
