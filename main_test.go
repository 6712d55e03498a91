package main

import (
	"testing"

	"github.com/danielpaulus/go-rspstub/config"
	"github.com/danielpaulus/go-rspstub/rsp"
	"github.com/docopt/docopt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubHandler(t *testing.T) {
	h := &stubHandler{}

	reply, err := h.HandlePacket([]byte("qSupported:multiprocess+"))
	require.NoError(t, err)
	assert.NotNil(t, reply)
	assert.Empty(t, reply)

	reply, err = h.HandlePacket([]byte{})
	require.NoError(t, err)
	assert.Equal(t, []byte{}, reply)

	request := []byte("X0,2:}]}\x03")
	reply, err = h.HandlePacket(request)
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Equal(t, []byte("X0,2:}]}\x03"), request, "the request buffer is left untouched")

	reply, err = h.HandlePacket([]byte("D"))
	assert.ErrorIs(t, err, rsp.ErrDetach)
	assert.Equal(t, []byte("OK"), reply)

	reply, err = h.HandlePacket([]byte("k"))
	assert.ErrorIs(t, err, rsp.ErrDetach)
	assert.Nil(t, reply)

	assert.Equal(t, 5, h.requests)
}

func TestApplyFlags(t *testing.T) {
	cfg, err := applyFlags(config.Default(), docopt.Opts{
		"--port":   "1234",
		"--host":   "127.0.0.1",
		"--nojson": true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.False(t, cfg.JSONLogs)

	cfg, err = applyFlags(config.Default(), docopt.Opts{"--service": "rsp"})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, "rsp", cfg.Service)

	cfg, err = applyFlags(config.Default(), docopt.Opts{"--port": nil, "--nojson": false})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = applyFlags(config.Default(), docopt.Opts{"--port": "gdb"})
	assert.Error(t, err)

	_, err = applyFlags(config.Default(), docopt.Opts{"--port": "99999"})
	assert.Error(t, err)
}

func TestNewConnection(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, config.DefaultPort, newConnection(cfg).Port())

	cfg.Port = 0
	assert.Equal(t, 0, newConnection(cfg).Port())
}
