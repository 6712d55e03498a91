package rsp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned for I/O on a connection that has no client.
	ErrNotConnected = errors.New("rsp: no client connected")
	// ErrPacketTooLarge means a payload does not fit into the Packet it should be stored in.
	ErrPacketTooLarge = errors.New("rsp: payload exceeds packet capacity")
)

// SetupError is returned by Connect when resolving the service, binding or listening
// fails. It is not worth retrying, callers should abort.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("rsp: setup failed during %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// AcceptError is returned by Connect when accepting the client failed. The listener has
// been released and Connect can be called again.
type AcceptError struct {
	Err error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("rsp: failed to accept client: %v", e.Err)
}

func (e *AcceptError) Unwrap() error {
	return e.Err
}

// ChannelError is a hard read or write failure on the client socket, including the peer
// going away. The connection is unusable afterwards and should be closed.
type ChannelError struct {
	Op  string
	Err error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("rsp: %s failed: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// IsSetupError returns true if err is or wraps a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}

// IsRetriable returns true if Connect can be tried again after err.
func IsRetriable(err error) bool {
	var ae *AcceptError
	return errors.As(err, &ae)
}

// IsChannelFailure returns true if err means the client connection is gone.
func IsChannelFailure(err error) bool {
	var ce *ChannelError
	return errors.As(err, &ce)
}
