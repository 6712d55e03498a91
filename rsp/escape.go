package rsp

import (
	"golang.org/x/exp/slices"
)

const (
	packetStart  = '$'
	packetEnd    = '#'
	escapeMarker = '}'
	escapeXor    = 0x20

	ack  = '+'
	nack = '-'
)

// escapedBytes are the bytes that never appear verbatim inside a packet body.
// '*' is reserved for run length encoding.
var escapedBytes = []byte{packetStart, packetEnd, '*', escapeMarker}

// NeedsEscape reports whether b must be escaped inside a packet body.
func NeedsEscape(b byte) bool {
	return slices.Contains(escapedBytes, b)
}

// Escape appends src to dst, replacing every byte that needs escaping with the escape
// marker followed by the byte XOR 0x20.
func Escape(dst, src []byte) []byte {
	for _, b := range src {
		if NeedsEscape(b) {
			dst = append(dst, escapeMarker, b^escapeXor)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}

// Unescape reverses Escape in place and returns the shortened slice. Binary payloads
// (the X packet for example) arrive escaped and must be passed through this before use.
// buf must not end with a lone escape marker; if it does, the marker is kept as is.
func Unescape(buf []byte) []byte {
	to := 0
	for from := 0; from < len(buf); from++ {
		b := buf[from]
		if b == escapeMarker && from+1 < len(buf) {
			from++
			b = buf[from] ^ escapeXor
		}
		buf[to] = b
		to++
	}
	return buf[:to]
}
