package rsp

import (
	log "github.com/sirupsen/logrus"
)

// Checksum is the modulo 256 sum of the given wire bytes.
func Checksum(wire []byte) byte {
	var sum byte
	for _, b := range wire {
		sum += b
	}
	return sum
}

// AppendFrame appends the complete frame "$<escaped payload>#<checksum>" to dst.
// The checksum covers the escaped body exactly as it goes out on the wire.
func AppendFrame(dst, payload []byte) []byte {
	dst = append(dst, packetStart)
	bodyStart := len(dst)
	dst = Escape(dst, payload)
	sum := Checksum(dst[bodyStart:])
	return append(dst, packetEnd, HexChar(sum>>4), HexChar(sum))
}

// Codec reads and writes acknowledged packets on a Channel. Receive and Send must not be
// called concurrently, the protocol only ever has one packet in flight.
type Codec struct {
	ch    *Channel
	txbuf []byte
	log   *log.Entry
}

// NewCodec creates a Codec on top of ch.
func NewCodec(ch *Channel, logger *log.Entry) *Codec {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Codec{ch: ch, log: logger}
}

// Receive blocks until a packet with a valid checksum has been read into pkt and
// acknowledged. Frames with bad checksums are answered with '-' so the peer retransmits,
// frames that do not fit into pkt are dropped. Neither is reported to the caller. The
// only error is a *ChannelError, after which the connection is dead.
//
// The payload is stored as received, escaped binary data has to be passed to Unescape.
func (c *Codec) Receive(pkt *Packet) error {
	dec := NewDecoder(pkt)
	for {
		b, err := c.ch.ReadByte()
		if err != nil {
			return err
		}
		switch dec.Feed(b) {
		case StepContinue:
		case StepOverflow:
			c.log.WithField("capacity", pkt.Cap()).Warn("RSP packet overran buffer")
		case StepMismatch:
			computed, received := dec.Checksums()
			c.log.Warnf("Bad RSP checksum: computed 0x%02x, received 0x%02x", computed, received)
			if err := c.ch.WriteByte(nack); err != nil {
				return err
			}
		case StepComplete:
			if err := c.ch.WriteByte(ack); err != nil {
				return err
			}
			c.log.Tracef("getPkt: %s", pkt)
			return nil
		}
	}
}

// Send transmits pkt and waits for the peer to acknowledge it. The frame is retransmitted
// for every reply that is not '+'. Only a *ChannelError ends this early.
func (c *Codec) Send(pkt *Packet) error {
	c.txbuf = AppendFrame(c.txbuf[:0], pkt.Bytes())
	for {
		if _, err := c.ch.Write(c.txbuf); err != nil {
			return err
		}
		reply, err := c.ch.ReadByte()
		if err != nil {
			return err
		}
		if reply == ack {
			c.log.Tracef("putPkt: %s", pkt)
			return nil
		}
		c.log.Debugf("RSP packet not acknowledged (got %q), retransmitting", reply)
	}
}
