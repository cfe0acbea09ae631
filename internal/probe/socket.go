package probe

import (
	"golang.org/x/net/icmp"
)

// Network type constants for unprivileged ICMP datagram sockets
const (
	NetworkIPv4 = "udp4"
	NetworkIPv6 = "udp6"
)

const (
	addrIPv4All = "0.0.0.0"
	addrIPv6All = "::"
)

// Listen creates an unprivileged ICMP datagram socket. On Linux this needs
// the caller's group to be inside net.ipv4.ping_group_range.
func Listen(ipv6 bool) (*icmp.PacketConn, string, error) {
	network, addr := NetworkIPv4, addrIPv4All
	if ipv6 {
		network, addr = NetworkIPv6, addrIPv6All
	}

	c, err := icmp.ListenPacket(network, addr)
	if err != nil {
		return nil, "", err
	}
	return c, network, nil
}
