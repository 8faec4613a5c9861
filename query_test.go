package sntp

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttemptOptions(t *testing.T, net *fakeNetwork, ticker *fakeTicker, requestInstant time.Time) *queryAttemptOptions {
	t.Helper()
	return &queryAttemptOptions{
		serverName:            "time.example.com",
		address:               net.addrs[0],
		port:                  123,
		responseTimeout:       5 * time.Second,
		clientReportedVersion: 4,
		dataMinimization:      true,
		network:               net,
		ticker:                ticker,
		instantSource:         &fakeInstantSource{cur: requestInstant, precision: PrecisionNanos},
		random:                fakeRandom{v: 0x1234},
		logger:                fakeLogger{},
	}
}

func newSingleAddressNetwork(ticker *fakeTicker, scenario *attemptScenario) *fakeNetwork {
	addr := netip.MustParseAddr("203.0.113.1")
	return &fakeNetwork{
		addrs:     []netip.Addr{addr},
		scenarios: map[netip.Addr]*attemptScenario{addr: scenario},
		ticker:    ticker,
	}
}

func TestExecuteQueryAttemptSuccess(t *testing.T) {
	ticker := newFakeTicker()
	requestInstant := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	serverReceive, err := Timestamp64FromInstant(requestInstant.Add(105 * time.Millisecond))
	require.NoError(t, err)
	serverTransmit, err := Timestamp64FromInstant(requestInstant.Add(115 * time.Millisecond))
	require.NoError(t, err)

	net := newSingleAddressNetwork(ticker, &attemptScenario{
		forwardDelay: 100 * time.Millisecond,
		returnDelay:  110 * time.Millisecond,
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return goodResponse(req, 2, serverReceive, serverTransmit)
		},
	})

	opt := newTestAttemptOptions(t, net, ticker, requestInstant)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationSuccess, outcome.kind)
	assert.Equal(t, ticker.cur, outcome.success.t4Ticks.t)
}

func TestExecuteQueryAttemptSendFailureIsNonHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{sendErr: assertErr("connection refused")})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.False(t, outcome.failure.Halting)
	assert.Equal(t, FailureSocketSend, outcome.failure.Kind)
}

func TestExecuteQueryAttemptReceiveTimeoutNonHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{timesOut: true})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	opt.responseTimeout = 50 * time.Millisecond
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.False(t, outcome.failure.Halting)
	assert.Equal(t, FailureSocketReceiveTimeout, outcome.failure.Kind)
}

func TestExecuteQueryAttemptTimeAllowedExceeded(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{timesOut: true})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	remaining := 10 * time.Millisecond
	opt.responseTimeout = 5 * time.Second
	opt.timeAllowedRemaining = &remaining
	outcome := executeQueryAttempt(context.Background(), opt)
	assert.Equal(t, OperationTimeAllowedExceeded, outcome.kind)
}

func TestExecuteQueryAttemptMismatchedOriginateTimestampHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(serverMode).SetStratum(2).
				SetReferenceID([4]byte{1, 2, 3, 4}).
				SetOriginateTimestamp(NewTimestamp64(1, 2)). // does not echo request
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				Build()
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.True(t, outcome.failure.Halting)
	assert.Equal(t, FailureMismatchedOriginateTimestamp, outcome.failure.Kind)
}

func TestExecuteQueryAttemptBadServerModeHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(3). // client mode, not server
				SetStratum(2).
				SetOriginateTimestamp(req.TransmitTimestamp()).
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				Build()
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.True(t, outcome.failure.Halting)
	assert.Equal(t, FailureBadServerMode, outcome.failure.Kind)
}

func TestExecuteQueryAttemptKissOfDeathDenyHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(serverMode).SetStratum(0).
				SetReferenceIDASCII("DENY").
				SetOriginateTimestamp(req.TransmitTimestamp()).
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				Build()
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.True(t, outcome.failure.Halting)
	assert.Equal(t, FailureKissOfDeath, outcome.failure.Kind)
}

func TestExecuteQueryAttemptKissOfDeathInitNonHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(serverMode).SetStratum(0).
				SetReferenceIDASCII("INIT").
				SetOriginateTimestamp(req.TransmitTimestamp()).
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				Build()
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.False(t, outcome.failure.Halting)
}

func TestExecuteQueryAttemptUntrustedStratumNonHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(serverMode).SetStratum(16).
				SetOriginateTimestamp(req.TransmitTimestamp()).
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				Build()
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.False(t, outcome.failure.Halting)
	assert.Equal(t, FailureUntrustedStratum, outcome.failure.Kind)
}

func TestExecuteQueryAttemptZeroTransmitTimestampHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(serverMode).SetStratum(2).
				SetOriginateTimestamp(req.TransmitTimestamp()).
				Build() // transmit timestamp left zero
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.True(t, outcome.failure.Halting)
	assert.Equal(t, FailureZeroTransmitTimestamp, outcome.failure.Kind)
}

func TestExecuteQueryAttemptUnsynchronizedServerNonHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetLeap(3).
				SetVersion(4).SetMode(serverMode).SetStratum(2).
				SetOriginateTimestamp(req.TransmitTimestamp()).
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				SetReferenceTimestamp(NewTimestamp64(1, 1)).
				Build()
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.False(t, outcome.failure.Halting)
	assert.Equal(t, FailureUnsynchronizedServer, outcome.failure.Kind)
}

func TestExecuteQueryAttemptReferenceTimestampZeroNonHalting(t *testing.T) {
	ticker := newFakeTicker()
	net := newSingleAddressNetwork(ticker, &attemptScenario{
		buildResponse: func(req *NtpHeader) *NtpHeader {
			return NewHeaderBuilder().
				SetVersion(4).SetMode(serverMode).SetStratum(2).
				SetOriginateTimestamp(req.TransmitTimestamp()).
				SetTransmitTimestamp(NewTimestamp64(5, 6)).
				Build() // reference timestamp left zero
		},
	})
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.False(t, outcome.failure.Halting)
	assert.Equal(t, FailureReferenceTimestampZero, outcome.failure.Kind)
}

func TestExecuteQueryAttemptUnexpectedOriginHalting(t *testing.T) {
	ticker := newFakeTicker()
	addr := netip.MustParseAddr("203.0.113.1")
	other := netip.MustParseAddr("203.0.113.9")
	net := &fakeNetwork{
		addrs: []netip.Addr{addr},
		scenarios: map[netip.Addr]*attemptScenario{addr: {
			buildResponse: func(req *NtpHeader) *NtpHeader {
				return goodResponse(req, 2, NewTimestamp64(10, 0), NewTimestamp64(11, 0))
			},
			fromAddrOverride: other,
		}},
		ticker: ticker,
	}
	opt := newTestAttemptOptions(t, net, ticker, ticker.cur)
	outcome := executeQueryAttempt(context.Background(), opt)
	require.Equal(t, OperationFailure, outcome.kind)
	assert.True(t, outcome.failure.Halting)
	assert.Equal(t, FailureUnexpectedOrigin, outcome.failure.Kind)
}

// assertErr is a minimal error type used where the specific error value
// doesn't matter, only that Send/Receive failed.
type assertErr string

func (e assertErr) Error() string { return string(e) }
