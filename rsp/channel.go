package rsp

import (
	"bufio"
	"errors"
	"io"

	log "github.com/sirupsen/logrus"
)

// maxEmptyWrites is how many writes in a row may return neither data nor an error before
// the peer is considered stuck.
const maxEmptyWrites = 100

// Channel moves single bytes and whole buffers over the client socket. Interrupted system
// calls are retried, for writes also would-block conditions and zero length writes (up to
// maxEmptyWrites in a row, then io.ErrShortWrite). Everything else is a hard failure
// reported as a *ChannelError.
type Channel struct {
	rw  io.ReadWriter
	r   *bufio.Reader
	log *log.Entry
}

// NewChannel wraps a connected stream. A nil rw yields a channel that is not connected.
func NewChannel(rw io.ReadWriter, logger *log.Entry) *Channel {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	c := &Channel{rw: rw, log: logger}
	if rw != nil {
		c.r = bufio.NewReader(rw)
	}
	return c
}

// IsConnected reports whether the channel has a stream to talk to.
func (c *Channel) IsConnected() bool {
	return c != nil && c.rw != nil
}

// WriteByte sends exactly one byte.
func (c *Channel) WriteByte(b byte) error {
	if !c.IsConnected() {
		c.log.Warnf("Attempt to write '%c' to unopened RSP client: ignored", b)
		return &ChannelError{Op: "write", Err: ErrNotConnected}
	}
	buf := [1]byte{b}
	empty := 0
	for {
		n, err := c.rw.Write(buf[:])
		if n == 1 {
			return nil
		}
		if werr := c.checkWrite(err, &empty); werr != nil {
			return werr
		}
	}
}

// Write sends all of p. Short writes are continued until the whole buffer is out, so
// n == len(p) whenever err is nil.
func (c *Channel) Write(p []byte) (int, error) {
	if !c.IsConnected() {
		c.log.Warnf("Attempt to write %q to unopened RSP client: ignored", p)
		return 0, &ChannelError{Op: "write", Err: ErrNotConnected}
	}
	written := 0
	empty := 0
	for written < len(p) {
		n, err := c.rw.Write(p[written:])
		written += n
		if n > 0 {
			empty = 0
			if err == nil {
				continue
			}
		}
		if werr := c.checkWrite(err, &empty); werr != nil {
			return written, werr
		}
	}
	return written, nil
}

// checkWrite decides whether a write that did not finish the buffer may be retried.
// empty counts consecutive writes that made no progress and reported no error.
func (c *Channel) checkWrite(err error, empty *int) error {
	if err == nil {
		*empty++
		if *empty < maxEmptyWrites {
			return nil
		}
		err = io.ErrShortWrite
	} else if isRetriableWrite(err) {
		return nil
	}
	c.log.WithError(err).Warn("Failed to write to RSP client, closing client connection")
	return &ChannelError{Op: "write", Err: err}
}

// ReadByte blocks until one byte arrives. End of stream is a failure as well, the
// returned error then wraps io.EOF.
func (c *Channel) ReadByte() (byte, error) {
	if !c.IsConnected() {
		c.log.Warn("Attempt to read from unopened RSP client: ignored")
		return 0, &ChannelError{Op: "read", Err: ErrNotConnected}
	}
	for {
		b, err := c.r.ReadByte()
		if err == nil {
			return b, nil
		}
		if isInterrupted(err) {
			continue
		}
		if errors.Is(err, io.EOF) {
			c.log.Debug("RSP client closed the connection")
		} else {
			c.log.WithError(err).Warn("Failed to read from RSP client, closing client connection")
		}
		return 0, &ChannelError{Op: "read", Err: err}
	}
}

func isRetriableWrite(err error) bool {
	return isInterrupted(err) || isWouldBlock(err)
}
