package main

import (
	"net"
)

// ipMasker hides the host part of client addresses in logs.
type ipMasker struct {
	IPv4Mask net.IPMask
	IPv6Mask net.IPMask
}

// Mask masks an address with the configured CIDR.
// addr can be "host:port" or just host. Anything that is not an IP is
// returned unchanged.
func (m *ipMasker) Mask(addr string) string {
	if m.IPv4Mask == nil && m.IPv6Mask == nil {
		return addr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, ""
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return addr
	}
	if ip4 := ip.To4(); ip4 != nil {
		if m.IPv4Mask == nil {
			return addr
		}
		host = ip4.Mask(m.IPv4Mask).String()
	} else {
		if m.IPv6Mask == nil {
			return addr
		}
		host = ip.Mask(m.IPv6Mask).String()
	}
	if port == "" {
		return host
	}
	return net.JoinHostPort(host, port)
}

var defaultIPMasker = &ipMasker{}
