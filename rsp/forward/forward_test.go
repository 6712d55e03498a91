package forward_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/danielpaulus/go-rspstub/rsp"
	"github.com/danielpaulus/go-rspstub/rsp/forward"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(hook *test.Hook) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestTracer(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	tracer := forward.NewTracer(log.NewEntry(logger), 16)

	n, err := tracer.Write([]byte("+$qC#b4-$OK#00"))
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, "ack", entries[0].Message)
	assert.Equal(t, log.DebugLevel, entries[0].Level)
	assert.Equal(t, "qC", entries[1].Message)
	assert.Equal(t, 2, entries[1].Data["len"])
	assert.Equal(t, "nack", entries[2].Message)
	assert.Equal(t, log.WarnLevel, entries[3].Level)
	assert.Equal(t, "bad checksum: computed 0x9a, received 0x00", entries[3].Message)
}

func TestTracerSplitWrites(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tracer := forward.NewTracer(log.NewEntry(logger), 16)
	for _, b := range []byte("$QC1#c5") {
		tracer.Write([]byte{b})
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "QC1", hook.LastEntry().Message)
}

func TestTracerOverflow(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tracer := forward.NewTracer(log.NewEntry(logger), 4)
	tracer.Write([]byte("$abcdef#2f"))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "packet longer than 3 bytes, not traced", hook.LastEntry().Message)
}

func TestForwarderEndToEnd(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	stubAddr := make(chan net.Addr, 1)
	stub := rsp.NewConnection(0,
		rsp.WithListenHost("127.0.0.1"),
		rsp.WithListenHook(func(a net.Addr) { stubAddr <- a }))
	defer stub.Close()
	connected := make(chan error, 1)
	go func() { connected <- stub.Connect(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fwd, err := forward.Listen(ctx, "127.0.0.1:0", (<-stubAddr).String(), rsp.DefaultPacketSize)
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- fwd.Serve(ctx) }()

	client, err := rsp.Dial(ctx, fwd.Addr().String(), rsp.DefaultPacketSize)
	require.NoError(t, err)
	require.NoError(t, <-connected)

	go func() {
		pkt := rsp.NewPacket(rsp.DefaultPacketSize)
		if stub.GetPacket(pkt) != nil {
			return
		}
		pkt.SetString("QC1")
		stub.PutPacket(pkt)
	}()
	reply, err := client.Request("qC")
	require.NoError(t, err)
	assert.Equal(t, "QC1", reply)

	require.NoError(t, client.Close())
	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("forwarder did not stop")
	}

	msgs := messages(hook)
	assert.Contains(t, msgs, "qC")
	assert.Contains(t, msgs, "QC1")
	assert.Contains(t, msgs, "session closed")
}

func TestForwarderTargetDown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	target := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fwd, err := forward.Listen(ctx, "127.0.0.1:0", target, rsp.DefaultPacketSize)
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- fwd.Serve(ctx) }()

	conn, err := net.Dial("tcp", fwd.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err, "the debugger is disconnected when the stub cannot be reached")

	require.NoError(t, fwd.Close())
	assert.NoError(t, <-served)
}
