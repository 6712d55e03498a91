package rsp

import (
	"fmt"
)

// DefaultPacketSize is the capacity used when nothing else is configured. Large enough
// for a full register dump of a 32 bit target plus memory transfers of a few hundred bytes.
const DefaultPacketSize = 2048

// Packet is a reusable fixed capacity buffer holding one packet payload.
// One byte of the capacity is reserved for a terminating NUL so that textual
// payloads can be handed to code that expects C style strings.
type Packet struct {
	data []byte
	n    int
}

// NewPacket allocates a Packet. The largest payload it can hold is capacity-1 bytes.
func NewPacket(capacity int) *Packet {
	if capacity < 2 {
		panic(fmt.Sprintf("rsp: packet capacity must be at least 2, got %d", capacity))
	}
	return &Packet{data: make([]byte, capacity)}
}

// Bytes returns the current payload. The slice aliases the packet buffer and is only
// valid until the packet is reused.
func (p *Packet) Bytes() []byte {
	return p.data[:p.n]
}

func (p *Packet) String() string {
	return string(p.data[:p.n])
}

// Len returns the payload length.
func (p *Packet) Len() int {
	return p.n
}

// Cap returns the buffer capacity including the reserved terminator byte.
func (p *Packet) Cap() int {
	return len(p.data)
}

// MaxLen is the longest payload the packet can hold.
func (p *Packet) MaxLen() int {
	return len(p.data) - 1
}

// Set copies payload into the packet.
func (p *Packet) Set(payload []byte) error {
	if len(payload) > p.MaxLen() {
		return fmt.Errorf("%w: %d bytes, capacity allows %d", ErrPacketTooLarge, len(payload), p.MaxLen())
	}
	copy(p.data, payload)
	p.setLen(len(payload))
	return nil
}

// SetString copies s into the packet.
func (p *Packet) SetString(s string) error {
	if len(s) > p.MaxLen() {
		return fmt.Errorf("%w: %d bytes, capacity allows %d", ErrPacketTooLarge, len(s), p.MaxLen())
	}
	copy(p.data, s)
	p.setLen(len(s))
	return nil
}

// Reset empties the packet without releasing its buffer.
func (p *Packet) Reset() {
	p.setLen(0)
}

func (p *Packet) setLen(n int) {
	p.n = n
	p.data[n] = 0
}
