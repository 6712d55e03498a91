package rsp_test

import (
	"testing"

	"github.com/danielpaulus/go-rspstub/rsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacket(t *testing.T) {
	pkt := rsp.NewPacket(4)
	assert.Equal(t, 4, pkt.Cap())
	assert.Equal(t, 3, pkt.MaxLen())
	assert.Equal(t, 0, pkt.Len())

	require.NoError(t, pkt.SetString("abc"))
	assert.Equal(t, "abc", pkt.String())
	assert.Equal(t, []byte("abc"), pkt.Bytes())

	err := pkt.Set([]byte("abcd"))
	assert.ErrorIs(t, err, rsp.ErrPacketTooLarge)
	assert.Equal(t, "abc", pkt.String(), "a rejected payload leaves the packet alone")

	err = pkt.SetString("abcd")
	assert.ErrorIs(t, err, rsp.ErrPacketTooLarge)

	pkt.Reset()
	assert.Equal(t, 0, pkt.Len())
}

func TestNewPacketRejectsTinyCapacity(t *testing.T) {
	assert.Panics(t, func() { rsp.NewPacket(1) })
	assert.NotPanics(t, func() { rsp.NewPacket(2) })
}
