package sntp

import (
	"context"
	"net/netip"
)

// clientMode and serverMode are the NTP association modes this client
// speaks and expects in return; every other mode value is a
// protocol violation.
const (
	clientMode uint8 = 3
	serverMode uint8 = 4
)

// successResult is everything the calculation stage (calc.go) needs from a
// completed query attempt: the raw request/response headers plus the three
// clock readings taken around the wire exchange.
type successResult struct {
	serverAddress netip.Addr
	ticker        Ticker
	t1Instant     Instant
	t1Ticks       Ticks
	t4Ticks       Ticks
	request       *NtpHeader
	response      *NtpHeader
}

// queryAttemptOptions bundles the inputs to a single per-address attempt.
type queryAttemptOptions struct {
	serverName            string
	address               netip.Addr
	port                  int
	responseTimeout       Duration
	timeAllowedRemaining  *Duration // nil means unbounded
	clientReportedVersion uint8
	dataMinimization      bool
	localAddress          string
	ttl                   int

	network       Network
	ticker        Ticker
	instantSource InstantSource
	random        Random
	logger        Logger
}

// queryAttemptOutcome is the classified result of one per-address attempt:
// exactly one of success/failure is set, or neither for a bare
// TimeAllowedExceeded (kind is always set).
type queryAttemptOutcome struct {
	kind    NetworkOperationKind
	success *successResult
	failure *ProtocolFailure
}

// buildRequestHeader constructs a fresh client-mode request header, in
// either of the two transmit-timestamp generation modes.
func buildRequestHeader(opt *queryAttemptOptions) *NtpHeader {
	b := NewHeaderBuilder().
		SetLeap(0).
		SetVersion(opt.clientReportedVersion).
		SetMode(clientMode)

	var transmit Timestamp64
	if opt.dataMinimization {
		// Data-minimized (default): an opaque random nonce, never a real
		// clock reading, per draft-ietf-ntp-data-minimization.
		transmit = NewTimestamp64(opt.random.Uint32(), opt.random.Uint32())
	} else {
		// Nominal: the real wall-clock instant, sub-millisecond bits
		// randomized when the source only offers millisecond precision.
		ts, err := Timestamp64FromInstant(opt.instantSource.Now())
		if err != nil {
			// Overflow here would mean the system clock is wildly out of
			// range; fall back to a data-minimized nonce rather than fail
			// the whole query over a timestamp that's purely a nonce to
			// the server anyway.
			transmit = NewTimestamp64(opt.random.Uint32(), opt.random.Uint32())
		} else {
			transmit = ts
			if opt.instantSource.Precision() == PrecisionMillis {
				transmit = transmit.RandomizeSubMillis(opt.random)
			}
		}
	}
	b.SetTransmitTimestamp(transmit)
	return b.Build()
}

// dominantLimit reports which of responseTimeout and the remaining
// time-allowed budget is smaller, and therefore governs the socket read
// timeout.
func dominantLimit(responseTimeout Duration, timeAllowedRemaining *Duration) (limit Duration, timeAllowedDominates bool) {
	if timeAllowedRemaining == nil || *timeAllowedRemaining >= responseTimeout {
		return responseTimeout, false
	}
	return *timeAllowedRemaining, true
}

// executeQueryAttempt runs the full per-address query procedure: build
// request, open socket, send, receive, close, validate. The instant/tick
// captures around the wire exchange are strictly ordered and never
// reordered.
func executeQueryAttempt(ctx context.Context, opt *queryAttemptOptions) queryAttemptOutcome {
	request := buildRequestHeader(opt)

	conn, err := opt.network.CreateUDPSocket(ctx, opt.localAddress, opt.ttl)
	if err != nil {
		return nonHaltingOutcome(FailureSocketCreate, "creating udp socket", err)
	}
	defer conn.Close()

	readLimit, timeAllowedDominates := dominantLimit(opt.responseTimeout, opt.timeAllowedRemaining)
	if err := conn.SetReadTimeout(readLimit); err != nil {
		return nonHaltingOutcome(FailureSocketCreate, "setting read timeout", err)
	}

	// Capture wall instant then monotonic ticks, in that order, immediately
	// before sending.
	t1Instant := opt.instantSource.Now()
	t1Ticks := opt.ticker.Now()

	if err := conn.Send(ctx, opt.address, opt.port, request.Bytes()); err != nil {
		opt.logger.Warnf("sntp: send to %s failed: %v", opt.serverName, err)
		return nonHaltingOutcome(FailureSocketSend, "sending request", err)
	}

	recvBuf := make([]byte, headerSize)
	n, fromAddr, fromPort, err := conn.Receive(ctx, recvBuf)
	if err != nil {
		if isTimeoutError(err) {
			if timeAllowedDominates {
				return queryAttemptOutcome{kind: OperationTimeAllowedExceeded}
			}
			return nonHaltingOutcome(FailureSocketReceiveTimeout, "receive timed out", err)
		}
		return nonHaltingOutcome(FailureSocketReceive, "receiving response", err)
	}

	// t4: monotonic tick captured immediately after receive.
	t4Ticks := opt.ticker.Now()

	if n != headerSize {
		return nonHaltingOutcome(FailureSocketReceive, "short response packet", nil)
	}
	response, err := NtpHeaderFromBytes(recvBuf[:n])
	if err != nil {
		return nonHaltingOutcome(FailureSocketReceive, "malformed response packet", err)
	}

	if fromAddr != opt.address || fromPort != opt.port {
		return haltingOutcome(FailureUnexpectedOrigin, "response from unexpected address")
	}
	if !response.OriginateTimestamp().Equal(request.TransmitTimestamp()) {
		return haltingOutcome(FailureMismatchedOriginateTimestamp, "originate timestamp does not echo request")
	}
	if response.Mode() != serverMode {
		return haltingOutcome(FailureBadServerMode, "response mode is not server")
	}

	if response.Stratum() == 0 {
		code := response.ReferenceIDASCII()
		halting, known := classifyKissCode(code)
		if !known {
			return haltingOutcome(FailureUnknownKissCode, "unrecognized kiss code "+code)
		}
		if halting {
			opt.logger.Warnf("sntp: kiss of death from %s: %s", opt.serverName, code)
			return haltingOutcome(FailureKissOfDeath, "kiss of death: "+code)
		}
		return nonHaltingOutcome(FailureKissOfDeath, "kiss of death (retryable): "+code, nil)
	}
	if response.Stratum() > 15 {
		return nonHaltingOutcome(FailureUntrustedStratum, "stratum greater than 15", nil)
	}

	if response.TransmitTimestamp().IsZero() {
		return haltingOutcome(FailureZeroTransmitTimestamp, "zero transmit timestamp")
	}
	if response.Leap() == 3 {
		return nonHaltingOutcome(FailureUnsynchronizedServer, "leap indicator reports unsynchronized (LI=3)", nil)
	}
	if response.ReferenceTimestamp().IsZero() {
		return nonHaltingOutcome(FailureReferenceTimestampZero, "zero reference timestamp", nil)
	}

	opt.logger.Debugf("sntp: success from %s (%s): stratum=%d", opt.serverName, opt.address, response.Stratum())

	return queryAttemptOutcome{
		kind: OperationSuccess,
		success: &successResult{
			serverAddress: opt.address,
			ticker:        opt.ticker,
			t1Instant:     t1Instant,
			t1Ticks:       t1Ticks,
			t4Ticks:       t4Ticks,
			request:       request,
			response:      response,
		},
	}
}

func haltingOutcome(kind ProtocolFailureKind, message string) queryAttemptOutcome {
	return queryAttemptOutcome{
		kind:    OperationFailure,
		failure: &ProtocolFailure{Kind: kind, Halting: true, Message: message},
	}
}

func nonHaltingOutcome(kind ProtocolFailureKind, message string, cause error) queryAttemptOutcome {
	return queryAttemptOutcome{
		kind:    OperationFailure,
		failure: &ProtocolFailure{Kind: kind, Halting: false, Message: message, Cause: cause},
	}
}

// timeoutError is satisfied by net.Error and any fake UDPConn error that
// wants to report a timeout without depending on the net package.
type timeoutError interface {
	Timeout() bool
}

func isTimeoutError(err error) bool {
	te, ok := err.(timeoutError)
	return ok && te.Timeout()
}
