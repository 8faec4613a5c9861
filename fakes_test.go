package sntp

import (
	"context"
	"net/netip"
	"time"
)

// This file implements the hand-written fake collaborators the query,
// cluster, and client tests drive the core with, instead of reaching for a
// mocking framework.

// fakeTicker is a Ticker whose clock only moves when advanced explicitly,
// usually by a fakeUDPConn simulating network/server delay.
type fakeTicker struct {
	cur time.Time
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{cur: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeTicker) Now() Ticks                  { return Ticks{t: f.cur} }
func (f *fakeTicker) Between(a, b Ticks) Duration { return b.t.Sub(a.t) }
func (f *fakeTicker) Advance(d Duration)           { f.cur = f.cur.Add(d) }

// fakeInstantSource is an InstantSource returning a fixed Instant; the core
// consults the wall clock only for t1Instant (and, in nominal mode, for the
// transmit timestamp just before it), so a fake doesn't need to simulate
// drift.
type fakeInstantSource struct {
	cur       time.Time
	precision Precision
}

func (f *fakeInstantSource) Now() Instant          { return f.cur }
func (f *fakeInstantSource) Precision() Precision { return f.precision }

// fakeRandom always returns the same value, for deterministic transmit
// timestamps in data-minimized mode.
type fakeRandom struct{ v uint32 }

func (f fakeRandom) Uint32() uint32 { return f.v }

// fakeLogger discards everything; tests assert on returned values, not log
// output.
type fakeLogger struct{}

func (fakeLogger) Debugf(string, ...interface{}) {}
func (fakeLogger) Infof(string, ...interface{})  {}
func (fakeLogger) Warnf(string, ...interface{})  {}

// fakeTimeoutErr implements the timeoutError interface query.go checks for,
// simulating a UDPConn read timeout without depending on net.Error.
type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string { return "fake: i/o timeout" }
func (fakeTimeoutErr) Timeout() bool { return true }

// attemptScenario scripts how a fakeUDPConn behaves when targeted at one
// particular address: either error at send, error (or time out) at
// receive, or build a response from the request it captured.
type attemptScenario struct {
	sendErr  error
	recvErr  error
	timesOut bool

	forwardDelay Duration
	returnDelay  Duration // includes simulated server processing

	buildResponse func(request *NtpHeader) *NtpHeader

	fromAddrOverride netip.Addr
	fromPortOverride int
}

// fakeNetwork implements Network, dispatching CreateUDPSocket into
// fakeUDPConn instances that consult scenarios keyed by destination
// address: this mirrors how a real net.ListenUDP socket isn't bound to a
// destination until Send specifies one.
type fakeNetwork struct {
	addrs           []netip.Addr
	resolveErr      error
	socketCreateErr error
	scenarios       map[netip.Addr]*attemptScenario
	ticker          *fakeTicker
}

func (n *fakeNetwork) Resolve(ctx context.Context, hostname string) ([]netip.Addr, error) {
	if n.resolveErr != nil {
		return nil, n.resolveErr
	}
	return n.addrs, nil
}

func (n *fakeNetwork) CreateUDPSocket(ctx context.Context, localAddress string, ttl int) (UDPConn, error) {
	if n.socketCreateErr != nil {
		return nil, n.socketCreateErr
	}
	return &fakeUDPConn{net: n}, nil
}

type fakeUDPConn struct {
	net         *fakeNetwork
	targetAddr  netip.Addr
	targetPort  int
	sent        []byte
	readTimeout Duration
	closed      bool
}

func (c *fakeUDPConn) SetReadTimeout(d Duration) error {
	c.readTimeout = d
	return nil
}

func (c *fakeUDPConn) Send(ctx context.Context, addr netip.Addr, port int, data []byte) error {
	c.targetAddr = addr
	c.targetPort = port
	c.sent = append([]byte(nil), data...)
	sc := c.net.scenarios[addr]
	if sc.sendErr != nil {
		return sc.sendErr
	}
	c.net.ticker.Advance(sc.forwardDelay)
	return nil
}

func (c *fakeUDPConn) Receive(ctx context.Context, buf []byte) (int, netip.Addr, int, error) {
	sc := c.net.scenarios[c.targetAddr]
	if sc.recvErr != nil {
		return 0, netip.Addr{}, 0, sc.recvErr
	}
	if sc.timesOut || (c.readTimeout > 0 && c.readTimeout < sc.returnDelay) {
		return 0, netip.Addr{}, 0, fakeTimeoutErr{}
	}
	c.net.ticker.Advance(sc.returnDelay)

	request, err := NtpHeaderFromBytes(c.sent)
	if err != nil {
		return 0, netip.Addr{}, 0, err
	}
	resp := sc.buildResponse(request)
	respBytes := resp.Bytes()
	n := copy(buf, respBytes)

	fromAddr := c.targetAddr
	if sc.fromAddrOverride.IsValid() {
		fromAddr = sc.fromAddrOverride
	}
	fromPort := c.targetPort
	if sc.fromPortOverride != 0 {
		fromPort = sc.fromPortOverride
	}
	return n, fromAddr, fromPort, nil
}

func (c *fakeUDPConn) Close() error {
	c.closed = true
	return nil
}

// goodResponse builds a well-formed server-mode response echoing request's
// transmit timestamp as the originate timestamp, with the given stratum and
// receive/transmit timestamps, and a reference timestamp 3600 era-seconds
// before receive.
func goodResponse(request *NtpHeader, stratum uint8, receive, transmit Timestamp64) *NtpHeader {
	return NewHeaderBuilder().
		SetLeap(0).
		SetVersion(4).
		SetMode(serverMode).
		SetStratum(stratum).
		SetPollExponent(6).
		SetPrecisionExponent(-20).
		SetReferenceID([4]byte{192, 0, 2, 1}).
		SetReferenceTimestamp(NewTimestamp64(receive.EraSeconds()-3600, 0)).
		SetOriginateTimestamp(request.TransmitTimestamp()).
		SetReceiveTimestamp(receive).
		SetTransmitTimestamp(transmit).
		Build()
}
