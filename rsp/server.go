package rsp

import (
	"context"
	"errors"
	"fmt"
)

// ErrDetach is returned by a Handler to end the session after its reply went out.
var ErrDetach = errors.New("rsp: session ended")

// PacketConn is one end of a packet exchange. Connection and Client both implement it.
type PacketConn interface {
	GetPacket(pkt *Packet) error
	PutPacket(pkt *Packet) error
}

// Handler interprets request payloads. The request slice is only valid during the call.
// A nil reply sends nothing back, an empty non-nil reply sends an empty packet, which
// tells a debugger the request is not supported.
type Handler interface {
	HandlePacket(request []byte) (reply []byte, err error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(request []byte) ([]byte, error)

func (f HandlerFunc) HandlePacket(request []byte) ([]byte, error) {
	return f(request)
}

// Serve runs the request/response loop on conn until the handler returns ErrDetach
// (Serve returns nil), the handler fails, the channel fails, or ctx is done. ctx is only
// checked between packets, a blocked read is interrupted by closing the socket.
func Serve(ctx context.Context, conn PacketConn, h Handler, packetSize int) error {
	rx := NewPacket(packetSize)
	tx := NewPacket(packetSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := conn.GetPacket(rx); err != nil {
			return err
		}
		reply, herr := h.HandlePacket(rx.Bytes())
		if herr != nil && !errors.Is(herr, ErrDetach) {
			return fmt.Errorf("Serve: handler failed for %q: %w", rx.String(), herr)
		}
		if reply != nil {
			if err := tx.Set(reply); err != nil {
				return fmt.Errorf("Serve: reply to %q: %w", rx.String(), err)
			}
			if err := conn.PutPacket(tx); err != nil {
				return err
			}
		}
		if herr != nil {
			return nil
		}
	}
}
