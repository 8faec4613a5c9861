package sntp

import (
	"net/netip"
	"time"
)

// ProtocolFailureKind enumerates the stable failure identifiers a per-address
// query attempt can produce. The numeric value is the
// FailureIdentifier external tooling can bucket on without string parsing.
type ProtocolFailureKind int

const (
	_ ProtocolFailureKind = iota
	FailureUnknownHost
	FailureSocketCreate
	FailureSocketSend
	FailureSocketReceive
	FailureSocketReceiveTimeout
	FailureUnexpectedOrigin
	FailureMismatchedOriginateTimestamp
	FailureBadServerMode
	FailureUnknownKissCode
	FailureKissOfDeath
	FailureUntrustedStratum
	FailureZeroTransmitTimestamp
	FailureUnsynchronizedServer
	FailureReferenceTimestampZero
	FailureIPAddressesExhausted
)

// String renders a short, stable, machine-greppable name for the failure
// kind, independent of the human-readable message carried alongside it.
func (k ProtocolFailureKind) String() string {
	switch k {
	case FailureUnknownHost:
		return "UnknownHost"
	case FailureSocketCreate:
		return "SocketCreate"
	case FailureSocketSend:
		return "SocketSendException"
	case FailureSocketReceive:
		return "SocketReceiveException"
	case FailureSocketReceiveTimeout:
		return "SocketReceiveTimeout"
	case FailureUnexpectedOrigin:
		return "UnexpectedOrigin"
	case FailureMismatchedOriginateTimestamp:
		return "MismatchedOriginateTimestamp"
	case FailureBadServerMode:
		return "BadServerMode"
	case FailureUnknownKissCode:
		return "UnknownKissCode"
	case FailureKissOfDeath:
		return "KissOfDeath"
	case FailureUntrustedStratum:
		return "UntrustedStratum"
	case FailureZeroTransmitTimestamp:
		return "ZeroTransmitTimestamp"
	case FailureUnsynchronizedServer:
		return "UnsynchronizedServer"
	case FailureReferenceTimestampZero:
		return "ReferenceTimestampZero"
	case FailureIPAddressesExhausted:
		return "IPAddressesExhausted"
	default:
		return "Unknown"
	}
}

// ProtocolFailure is the error type carried by a non-Success
// NetworkOperationResult and by the cluster-level cause it bubbles up into.
// Halting reports whether the cluster operation should stop trying further
// addresses.
type ProtocolFailure struct {
	Kind    ProtocolFailureKind
	Halting bool
	Message string
	// Cause, when non-nil, is the lower-level error (usually networking)
	// this failure wraps.
	Cause error
}

func (f *ProtocolFailure) Error() string {
	if f.Message != "" {
		return "sntp: " + f.Kind.String() + ": " + f.Message
	}
	return "sntp: " + f.Kind.String()
}

func (f *ProtocolFailure) Unwrap() error { return f.Cause }

// FailureIdentifier returns the stable integer identifier for this failure,
// "stable failure_identifier integer for each" requirement.
func (f *ProtocolFailure) FailureIdentifier() int { return int(f.Kind) }

// NetworkOperationKind classifies the outcome of a single per-address
// attempt, recorded in DebugInfo.
type NetworkOperationKind int

const (
	OperationSuccess NetworkOperationKind = iota
	OperationFailure
	OperationTimeAllowedExceeded
)

func (k NetworkOperationKind) String() string {
	switch k {
	case OperationSuccess:
		return "Success"
	case OperationFailure:
		return "Failure"
	case OperationTimeAllowedExceeded:
		return "TimeAllowedExceeded"
	default:
		return "Unknown"
	}
}

// NetworkOperationResult records the outcome of one per-address attempt:
// which address was tried, what kind of outcome it had, and (for a failure)
// the stable failure identifier and underlying cause.
type NetworkOperationResult struct {
	ServerAddress     netip.Addr
	Kind              NetworkOperationKind
	FailureIdentifier int
	Cause             error
}

// DebugInfo is the ordered list of per-address attempts made during a query,
// surfaced on every SntpQueryResult variant regardless of outcome.
type DebugInfo struct {
	Attempts []NetworkOperationResult
}

func (d *DebugInfo) record(r NetworkOperationResult) {
	d.Attempts = append(d.Attempts, r)
}

// TimeSignal is the product of a successful query: an estimate of the offset
// between the local clock and the server's clock, the round-trip delay, and
// enough response metadata to discipline a clock or timestamp events.
type TimeSignal struct {
	ServerAddress netip.Addr

	Stratum        uint8
	PrecisionExp   int8
	PollInterval   Duration
	RootDelay      Duration
	RootDispersion Duration
	ReferenceID    [4]byte
	ReferenceIDStr string
	ReferenceTime  Timestamp64
	Leap           uint8

	// ResponseTicks is the monotonic-source reading at the moment the
	// response datagram was received (t4, in ticks).
	ResponseTicks Ticks

	// ResponseInstant is request instant + total transaction duration,
	// dead-reckoned from the monotonic measurement rather than re-read from
	// the wall clock.
	ResponseInstant Instant

	RoundTripDuration        Duration
	TotalTransactionDuration Duration
	ClientOffset             Duration64

	// AdjustedInstant is ResponseInstant + ClientOffset: the server's view
	// of the moment the response arrived.
	AdjustedInstant Instant
}

// RootDistance is RFC 5905 Appendix A.5.5.2's synchronization distance:
// half the root delay plus the root dispersion.
func (s *TimeSignal) RootDistance() Duration {
	return s.RootDelay/2 + s.RootDispersion
}

// maxSynchronizationDistance is RFC 5905's MAXDISP: the RootDistance bound
// beyond which a response is not fit for synchronization.
const maxSynchronizationDistance = 16 * time.Second

// maxPollIntervalSanity is the freshness bound applied between
// AdjustedInstant (the server's view of the response's arrival) and
// reference time: the maximum poll interval the protocol allows,
// 2^17 seconds.
const maxPollIntervalSanity = (1 << 17) * time.Second

// Sanity applies opt-in freshness, dispersion, and causality checks beyond
// the mandatory read-time validation the query itself performs. A caller
// may run it before disciplining a clock from the signal.
func (s *TimeSignal) Sanity() error {
	if s.Stratum == 0 {
		return &ProtocolFailure{Kind: FailureKissOfDeath, Message: "stratum 0 response"}
	}
	if s.Stratum >= 16 {
		return &ProtocolFailure{Kind: FailureUntrustedStratum, Message: "stratum out of trusted range"}
	}
	referenceInstant, err := s.ReferenceTime.InstantNear(s.AdjustedInstant)
	if err != nil {
		return err
	}
	if s.AdjustedInstant.Sub(referenceInstant) > maxPollIntervalSanity {
		return &ProtocolFailure{Message: "server clock not fresh relative to reference timestamp"}
	}
	if s.RootDistance() > maxSynchronizationDistance {
		return &ProtocolFailure{Message: "root synchronization distance exceeds 16s"}
	}
	if s.AdjustedInstant.Before(referenceInstant) {
		return &ProtocolFailure{Message: "adjusted response time before reference time"}
	}
	if s.Leap == 3 {
		return &ProtocolFailure{Kind: FailureUnsynchronizedServer, Message: "leap indicator reports unsynchronized"}
	}
	return nil
}

// SntpQueryResultKind discriminates the SntpQueryResult sum type.
type SntpQueryResultKind int

const (
	ResultSuccess SntpQueryResultKind = iota
	ResultRetryLater
	ResultProtocolError
	ResultTimeAllowedExceeded
)

// SntpQueryResult is the outcome of a top-level ExecuteQuery call: exactly
// one of Signal (on Success) or Cause (on RetryLater/ProtocolError) is
// populated; TimeAllowedExceeded carries neither. DebugInfo is always
// populated.
type SntpQueryResult struct {
	Kind      SntpQueryResultKind
	Signal    *TimeSignal
	Cause     error
	DebugInfo DebugInfo
}

// IsSuccess reports whether the query produced a usable TimeSignal.
func (r *SntpQueryResult) IsSuccess() bool { return r.Kind == ResultSuccess }
