package rsp_test

import (
	"testing"

	"github.com/danielpaulus/go-rspstub/rsp"
	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, []byte("}\x04}\x03}\x0a}]"), rsp.Escape(nil, []byte("$#*}")))
	assert.Equal(t, []byte("m1000,4"), rsp.Escape(nil, []byte("m1000,4")))
	assert.Equal(t, []byte("ab}\x03"), rsp.Escape([]byte("a"), []byte("b#")))
}

func TestUnescape(t *testing.T) {
	buf := []byte("X0,4:}\x04}\x03}\x0a}]")
	out := rsp.Unescape(buf)
	assert.Equal(t, []byte("X0,4:$#*}"), out)
	assert.Same(t, &buf[0], &out[0], "unescape works in place")

	assert.Equal(t, []byte("plain"), rsp.Unescape([]byte("plain")))
	assert.Empty(t, rsp.Unescape([]byte{}))
}

func TestUnescapeEveryByte(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	escaped := rsp.Escape(nil, all)
	assert.Len(t, escaped, 256+4)
	assert.Equal(t, all, rsp.Unescape(escaped))
}

func TestNeedsEscape(t *testing.T) {
	for _, b := range []byte("$#*}") {
		assert.True(t, rsp.NeedsEscape(b), "%q", b)
	}
	for _, b := range []byte("+-{]a0 \x00") {
		assert.False(t, rsp.NeedsEscape(b), "%q", b)
	}
}
