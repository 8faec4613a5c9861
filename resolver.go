package sntp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/ipv4"
)

// systemNetwork implements Network on top of net.Resolver and net.ListenUDP,
// reshaped behind the Network/UDPConn seam so the core can be driven by a
// fake in tests.
type systemNetwork struct {
	resolver *net.Resolver
}

// NewSystemNetwork returns the default, real-network Network implementation.
func NewSystemNetwork() Network {
	return &systemNetwork{resolver: net.DefaultResolver}
}

func (n *systemNetwork) Resolve(ctx context.Context, hostname string) ([]netip.Addr, error) {
	ipAddrs, err := n.resolver.LookupIP(ctx, "ip", hostname)
	if err != nil {
		return nil, fmt.Errorf("sntp: resolving %q: %w", hostname, err)
	}
	addrs := make([]netip.Addr, 0, len(ipAddrs))
	for _, ip := range ipAddrs {
		if a, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, a.Unmap())
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("sntp: resolving %q: no usable addresses", hostname)
	}
	return addrs, nil
}

func (n *systemNetwork) CreateUDPSocket(ctx context.Context, localAddress string, ttl int) (UDPConn, error) {
	var laddr *net.UDPAddr
	if localAddress != "" {
		ip := net.ParseIP(localAddress)
		if ip == nil {
			return nil, fmt.Errorf("sntp: invalid local address %q", localAddress)
		}
		laddr = &net.UDPAddr{IP: ip}
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("sntp: creating udp socket: %w", err)
	}
	// golang.org/x/net/ipv4 bounds the outgoing datagram's hop count.
	if ttl != 0 {
		if err := ipv4.NewConn(conn).SetTTL(ttl); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sntp: setting ttl: %w", err)
		}
	}
	return &systemUDPConn{conn: conn}, nil
}

// systemUDPConn adapts *net.UDPConn to the UDPConn seam.
type systemUDPConn struct {
	conn *net.UDPConn
}

func (c *systemUDPConn) SetReadTimeout(d time.Duration) error {
	return c.conn.SetReadDeadline(time.Now().Add(d))
}

func (c *systemUDPConn) Send(ctx context.Context, addr netip.Addr, port int, data []byte) error {
	_, err := c.conn.WriteToUDPAddrPort(data, netip.AddrPortFrom(addr, uint16(port)))
	return err
}

func (c *systemUDPConn) Receive(ctx context.Context, buf []byte) (int, netip.Addr, int, error) {
	n, fromAddrPort, err := c.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		return n, netip.Addr{}, 0, err
	}
	return n, fromAddrPort.Addr().Unmap(), int(fromAddrPort.Port()), nil
}

func (c *systemUDPConn) Close() error { return c.conn.Close() }
