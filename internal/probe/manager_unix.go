//go:build !windows

package probe

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	xicmp "golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

type echoReply struct {
	peerIP net.IP
}

// socketManager shares one ICMP socket between concurrent probes and routes
// replies back to the waiting caller by sequence number
type socketManager struct {
	conn       *xicmp.PacketConn
	protocol   int
	seqCounter atomic.Int32
	inFlight   sync.Map // map[int]chan *echoReply
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func newSocketManager(ipv6 bool) (*socketManager, error) {
	conn, _, err := Listen(ipv6)
	if err != nil {
		return nil, err
	}

	protocol := protocolICMP
	if ipv6 {
		protocol = protocolICMPv6
	}

	ctx, cancel := context.WithCancel(context.Background())
	mgr := &socketManager{
		conn:     conn,
		protocol: protocol,
		ctx:      ctx,
		cancel:   cancel,
	}

	mgr.wg.Add(1)
	go mgr.reader()

	return mgr, nil
}

func (m *socketManager) reader() {
	defer m.wg.Done()

	buffer := make([]byte, 1500)
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		// short deadline so cancellation is noticed
		_ = m.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

		n, peer, err := m.conn.ReadFrom(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if m.ctx.Err() != nil {
				return
			}
			continue
		}

		msg, err := xicmp.ParseMessage(m.protocol, buffer[:n])
		if err != nil {
			continue
		}
		if msg.Type != ipv4.ICMPTypeEchoReply && msg.Type != ipv6.ICMPTypeEchoReply {
			continue
		}
		echo, ok := msg.Body.(*xicmp.Echo)
		if !ok {
			continue
		}

		var peerIP net.IP
		switch addr := peer.(type) {
		case *net.UDPAddr:
			peerIP = addr.IP
		case *net.IPAddr:
			peerIP = addr.IP
		default:
			continue
		}

		if ch, ok := m.inFlight.LoadAndDelete(echo.Seq); ok {
			select {
			case ch.(chan *echoReply) <- &echoReply{peerIP: peerIP}:
			default:
			}
		}
	}
}

// Ping sends one echo request and returns the round trip in milliseconds,
// or nil on timeout, failure or cancellation
func (m *socketManager) Ping(ctx context.Context, ipAddr string, timeout time.Duration) *float64 {
	ip := net.ParseIP(ipAddr)
	if ip == nil {
		return nil
	}

	seq := int(m.seqCounter.Add(1) & 0xffff)
	replies := make(chan *echoReply, 1)
	m.inFlight.Store(seq, replies)
	defer m.inFlight.Delete(seq)

	var typ xicmp.Type = ipv4.ICMPTypeEcho
	network := "udp4"
	host := ipAddr
	if m.protocol == protocolICMPv6 {
		typ = ipv6.ICMPTypeEchoRequest
		network = "udp6"
		host = "[" + ipAddr + "]"
	}
	msg := xicmp.Message{
		Type: typ,
		Code: 0,
		Body: &xicmp.Echo{ID: 1, Seq: seq, Data: []byte("cvs-compass")},
	}
	msgBytes, err := msg.Marshal(nil)
	if err != nil {
		return nil
	}

	dst, err := net.ResolveUDPAddr(network, host+":0")
	if err != nil {
		return nil
	}

	start := time.Now()
	if _, err := m.conn.WriteTo(msgBytes, dst); err != nil {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-replies:
		if !reply.peerIP.Equal(ip) {
			return nil
		}
		latencyMs := float64(time.Since(start).Microseconds()) / 1000.0
		return &latencyMs
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Close stops the reader and releases the socket
func (m *socketManager) Close() error {
	m.cancel()
	err := m.conn.Close()
	m.wg.Wait()
	return err
}

func createPlatformPinger(ipv6 bool) (Pinger, error) {
	return newSocketManager(ipv6)
}

var _ Pinger = (*socketManager)(nil)
