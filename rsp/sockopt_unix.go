//go:build unix

package rsp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenBacklog is 1, the protocol only ever serves one debugger.
const listenBacklog = 1

// listenTCP binds host:port with SO_REUSEADDR and a backlog of listenBacklog. An empty host
// binds the IPv4 wildcard address. The net package does not let callers pick the backlog,
// so the socket is set up by hand and then handed to the runtime poller.
func listenTCP(ctx context.Context, host string, port int) (net.Listener, error) {
	sa, family, err := sockaddr(ctx, host, port)
	if err != nil {
		return nil, err
	}

	syscall.ForkLock.RLock()
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err == nil {
		syscall.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	// Lets a restarted stub bind its port again while old connections linger in TIME_WAIT.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("rsp-listener:%d", port))
	defer f.Close()
	l, err := net.FileListener(f)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func sockaddr(ctx context.Context, host string, port int) (unix.Sockaddr, int, error) {
	ip := net.IPv4zero
	if host != "" {
		addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, 0, err
		}
		if len(addrs) == 0 {
			return nil, 0, fmt.Errorf("no address found for %s", host)
		}
		ip = addrs[0].IP
	}
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	sa := &unix.SockaddrInet6{Port: port}
	copy(sa.Addr[:], ip.To16())
	return sa, unix.AF_INET6, nil
}

// ignoreBrokenPipe keeps a debugger that disappears mid write from killing the process.
func ignoreBrokenPipe() {
	signal.Ignore(unix.SIGPIPE)
}

func isInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
