package rsp

// State is the position of a Decoder inside the packet grammar.
type State int

const (
	// StateSeekStart discards everything until a '$'.
	StateSeekStart State = iota
	// StateBody collects payload bytes until '#'.
	StateBody
	// StateChecksum collects the two checksum digits.
	StateChecksum
)

func (s State) String() string {
	switch s {
	case StateSeekStart:
		return "seek-start"
	case StateBody:
		return "body"
	case StateChecksum:
		return "checksum"
	default:
		return "unknown"
	}
}

// Step is what happened after feeding one byte to a Decoder.
type Step int

const (
	// StepContinue means the byte was consumed and more input is needed.
	StepContinue Step = iota
	// StepOverflow means the body did not fit into the packet. The body was dropped, the
	// packet is empty and the decoder is looking for the next '$'.
	StepOverflow
	// StepMismatch means a complete frame arrived with a wrong or unparsable checksum.
	// The body was dropped, the packet is empty and the decoder is looking for the next '$'.
	StepMismatch
	// StepComplete means a valid packet is now stored in the packet.
	StepComplete
)

// Decoder reassembles packets from a byte stream one byte at a time. It does no I/O,
// acknowledging packets is up to the caller.
//
// A '$' inside a body restarts the body in place: bytes collected so far are dropped
// and the checksum starts over. That is how a receiver resynchronises after noise or a
// partially lost frame.
type Decoder struct {
	pkt      *Packet
	state    State
	n        int
	sum      byte
	received byte
	digits   int
	valid    bool
}

// NewDecoder returns a Decoder that stores payloads into pkt.
func NewDecoder(pkt *Packet) *Decoder {
	return &Decoder{pkt: pkt}
}

// State returns the current parser state.
func (d *Decoder) State() State {
	return d.state
}

// Checksums returns the checksum computed over the last body and the one sent by the
// peer. Only meaningful right after StepComplete or StepMismatch.
func (d *Decoder) Checksums() (computed byte, received byte) {
	return d.sum, d.received
}

// Reset drops any partial frame.
func (d *Decoder) Reset() {
	d.state = StateSeekStart
	d.n = 0
	d.sum = 0
}

// Feed advances the state machine by one byte.
func (d *Decoder) Feed(b byte) Step {
	switch d.state {
	case StateSeekStart:
		if b == packetStart {
			d.startBody()
		}
		return StepContinue

	case StateBody:
		switch b {
		case packetStart:
			d.startBody()
			return StepContinue
		case packetEnd:
			d.state = StateChecksum
			d.digits = 0
			d.received = 0
			d.valid = true
			return StepContinue
		}
		if d.n >= d.pkt.MaxLen() {
			d.Reset()
			d.pkt.setLen(0)
			return StepOverflow
		}
		d.pkt.data[d.n] = b
		d.n++
		d.sum += b
		return StepContinue

	case StateChecksum:
		v, ok := HexValue(b)
		d.valid = d.valid && ok
		d.received = d.received<<4 | v
		d.digits++
		if d.digits < 2 {
			return StepContinue
		}
		d.state = StateSeekStart
		if !d.valid || d.received != d.sum {
			d.n = 0
			d.pkt.setLen(0)
			return StepMismatch
		}
		d.pkt.setLen(d.n)
		d.n = 0
		return StepComplete
	}
	return StepContinue
}

func (d *Decoder) startBody() {
	d.state = StateBody
	d.n = 0
	d.sum = 0
}
