//go:build !unix

package rsp

import (
	"context"
	"net"
	"strconv"
)

// listenTCP falls back to the runtime listener. The backlog is whatever the platform
// default is, a single client is still enforced by accepting only once.
func listenTCP(ctx context.Context, host string, port int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

func ignoreBrokenPipe() {}

func isInterrupted(err error) bool {
	return false
}

func isWouldBlock(err error) bool {
	return false
}
