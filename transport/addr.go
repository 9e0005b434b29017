//go:build linux || darwin

// File: transport/addr.go
// Author: momentics <momentics@gmail.com>
//
// host:port parsing for AF_INET stream sockets.

package transport

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// resolveSockaddr is intentionally IPv4-only: the socket layer opens
// AF_INET stream sockets.
func resolveSockaddr(addr string) (*unix.SockaddrInet4, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("transport: bad address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, fmt.Errorf("transport: bad port in %q", addr)
	}
	sa := &unix.SockaddrInet4{Port: port}
	if host == "" {
		return sa, nil
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("transport: not an IPv4 address: %q", host)
	}
	copy(sa.Addr[:], ip.To4())
	return sa, nil
}

// formatSockaddr renders a bound AF_INET address back to host:port.
func formatSockaddr(sa unix.Sockaddr) string {
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return ""
	}
	ip := net.IP(sa4.Addr[:])
	return net.JoinHostPort(ip.String(), strconv.Itoa(sa4.Port))
}
