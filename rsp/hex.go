package rsp

import (
	"fmt"
)

const hexDigits = "0123456789abcdef"

// HexValue returns the value of a single hex digit. Upper and lower case are accepted.
// ok is false if c is not a hex digit.
func HexValue(c byte) (value byte, ok bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// HexChar maps the low nibble of d to its lowercase hex digit.
func HexChar(d byte) byte {
	return hexDigits[d&0xf]
}

// AppendRegister appends the 8 hex digit representation of a 32 bit register to dst.
// Bytes are written least significant first, which is what the debugger expects for a
// little endian target. Within a byte the high nibble comes first.
func AppendRegister(dst []byte, val uint32) []byte {
	for n := 0; n < 4; n++ {
		dst = append(dst, HexChar(byte(val>>4)), HexChar(byte(val)))
		val >>= 8
	}
	return dst
}

// EncodeRegister returns the 8 hex digit representation of val, see AppendRegister.
func EncodeRegister(val uint32) string {
	return string(AppendRegister(make([]byte, 0, 8), val))
}

// DecodeRegister parses 2*nBytes hex digits from buf, most significant nibble first.
func DecodeRegister(buf []byte, nBytes int) (uint32, error) {
	digits := 2 * nBytes
	if nBytes < 0 || nBytes > 4 {
		return 0, fmt.Errorf("DecodeRegister: cannot decode %d bytes into a uint32", nBytes)
	}
	if len(buf) < digits {
		return 0, fmt.Errorf("DecodeRegister: need %d hex digits, got %d", digits, len(buf))
	}
	var val uint32
	for i := 0; i < digits; i++ {
		v, ok := HexValue(buf[i])
		if !ok {
			return 0, fmt.Errorf("DecodeRegister: invalid hex digit %q at offset %d", buf[i], i)
		}
		val = val<<4 | uint32(v)
	}
	return val, nil
}

// ASCIIToHex encodes every byte of s as a pair of lowercase hex digits.
// Used for string valued fields like qRcmd commands and console output.
func ASCIIToHex(s string) string {
	out := make([]byte, 0, 2*len(s))
	for i := 0; i < len(s); i++ {
		out = append(out, HexChar(s[i]>>4), HexChar(s[i]))
	}
	return string(out)
}

// HexToASCII decodes pairs of hex digits back into a string. A trailing unpaired digit is
// ignored.
func HexToASCII(s string) (string, error) {
	out := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		hi, ok := HexValue(s[i])
		if !ok {
			return "", fmt.Errorf("HexToASCII: invalid hex digit %q at offset %d", s[i], i)
		}
		lo, ok := HexValue(s[i+1])
		if !ok {
			return "", fmt.Errorf("HexToASCII: invalid hex digit %q at offset %d", s[i+1], i+1)
		}
		out = append(out, hi<<4|lo)
	}
	return string(out), nil
}
