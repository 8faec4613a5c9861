package sntp

import (
	"context"
	"net/netip"
	"time"
)

// Ticks is an opaque reading from a monotonic tick source. Unlike an
// Instant, a Ticks value is meaningless in isolation: it can only be
// compared with another Ticks value from the same Ticker via Between, or
// advanced by a Duration via Add. (Ticks carries a concrete time.Time
// internally purely so the cluster operation can compute a deadline by
// advancing the start tick by the time-allowed budget; callers should
// otherwise treat it as opaque.)
type Ticks struct {
	t time.Time
}

// Add advances t by d. Used internally to compute an absolute deadline
// tick from an overall time-allowed budget.
func (t Ticks) Add(d Duration) Ticks {
	return Ticks{t: t.t.Add(d)}
}

// Ticker is the monotonic tick source the core consults for round-trip
// and time-budget measurements. Implementations must be non-decreasing
// and must not be affected by wall-clock adjustments.
type Ticker interface {
	Now() Ticks
	Between(a, b Ticks) Duration
}

// Precision describes how much of an InstantSource's sub-second reading
// is meaningful.
type Precision int

const (
	// PrecisionMillis means only millisecond resolution is meaningful;
	// the nominal (non-data-minimized) transmit-timestamp generator
	// randomizes the remaining low bits rather than leaking them.
	PrecisionMillis Precision = iota
	// PrecisionNanos means the full nanosecond reading is meaningful.
	PrecisionNanos
)

// InstantSource is the wall-clock source the core consults. It may be
// stepped or slewed between calls; the core never assumes monotonicity
// from it (that's what Ticker is for).
type InstantSource interface {
	Now() Instant
	Precision() Precision
}

// Random is a uniform-ish 32-bit random number source, used for
// data-minimized transmit timestamps and for randomizing the
// sub-millisecond bits of a nominal one.
type Random interface {
	Uint32() uint32
}

// UDPConn is a single UDP socket scoped to one query attempt. Callers must
// Close it on every exit path, including error paths.
type UDPConn interface {
	// SetReadTimeout bounds the next Receive call.
	SetReadTimeout(d time.Duration) error
	// Send transmits data as a single datagram to addr:port.
	Send(ctx context.Context, addr netip.Addr, port int, data []byte) error
	// Receive reads a single datagram into buf, returning the number of
	// bytes read and the sender's address and port.
	Receive(ctx context.Context, buf []byte) (n int, from netip.Addr, fromPort int, err error)
	Close() error
}

// Network resolves hostnames and creates UDP sockets. This is the sole
// seam between the core and the platform's DNS resolver and socket stack.
type Network interface {
	// Resolve looks up every address a hostname refers to. Fails with a
	// wrapped error if the name cannot be resolved at all.
	Resolve(ctx context.Context, hostname string) ([]netip.Addr, error)
	// CreateUDPSocket opens a new UDP socket, optionally bound to
	// localAddress (empty string for the wildcard address) and with the
	// given IP TTL (0 to leave the platform default).
	CreateUDPSocket(ctx context.Context, localAddress string, ttl int) (UDPConn, error)
}

// Logger is a level-gated structured message sink with no behavioral
// effect on the query. Implementations must be safe to call with a nil
// receiver-free value;
// NewNoopLogger and NewLogrusLogger both satisfy that.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Metrics is an optional observability collaborator: a nil-safe hook a
// caller can use to export per-attempt outcomes (e.g. to Prometheus)
// without the core depending on any particular exporter.
type Metrics interface {
	// Observe is called once per address attempt. outcome is one of
	// "success", "halting_failure", "non_halting_failure", or
	// "time_allowed_exceeded". rtt is zero unless outcome is "success".
	Observe(serverName string, addr netip.Addr, outcome string, rtt Duration)
}
