package sntp

import (
	"context"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// clusterQueryOptions bundles the inputs to the clustered query operation.
type clusterQueryOptions struct {
	hostname              string
	port                  int
	responseTimeout       Duration
	timeAllowed           *Duration // nil means unbounded
	clientReportedVersion uint8
	dataMinimization      bool
	localAddress          string
	ttl                   int

	network       Network
	ticker        Ticker
	instantSource InstantSource
	random        Random
	logger        Logger
	metrics       Metrics
}

// executeClusteredQuery resolves the hostname, iterates its addresses in
// order honoring both the per-attempt response timeout and the overall
// time-allowed budget, and aggregates the outcome.
func executeClusteredQuery(ctx context.Context, opt *clusterQueryOptions) *SntpQueryResult {
	debug := DebugInfo{}

	addrs, err := opt.network.Resolve(ctx, opt.hostname)
	if err != nil {
		return &SntpQueryResult{
			Kind:      ResultRetryLater,
			Cause:     &ProtocolFailure{Kind: FailureUnknownHost, Message: "resolving " + opt.hostname, Cause: err},
			DebugInfo: debug,
		}
	}

	var deadline *Ticks
	if opt.timeAllowed != nil {
		d := opt.ticker.Now().Add(*opt.timeAllowed)
		deadline = &d
	}

	var causes *multierror.Error

	for _, addr := range addrs {
		var remaining *Duration
		if deadline != nil {
			r := opt.ticker.Between(opt.ticker.Now(), *deadline)
			if r <= 0 {
				return &SntpQueryResult{Kind: ResultTimeAllowedExceeded, DebugInfo: debug}
			}
			remaining = &r
		}

		attemptOpt := &queryAttemptOptions{
			serverName:            opt.hostname,
			address:               addr,
			port:                  opt.port,
			responseTimeout:       opt.responseTimeout,
			timeAllowedRemaining:  remaining,
			clientReportedVersion: opt.clientReportedVersion,
			dataMinimization:      opt.dataMinimization,
			localAddress:          opt.localAddress,
			ttl:                   opt.ttl,
			network:               opt.network,
			ticker:                opt.ticker,
			instantSource:         opt.instantSource,
			random:                opt.random,
			logger:                opt.logger,
		}
		outcome := executeQueryAttempt(ctx, attemptOpt)

		switch outcome.kind {
		case OperationSuccess:
			debug.record(NetworkOperationResult{ServerAddress: addr, Kind: OperationSuccess})
			signal, err := performNtpCalculations(outcome.success)
			if opt.metrics != nil {
				if err != nil {
					opt.metrics.Observe(opt.hostname, addr, outcomeHaltingFailure, 0)
				} else {
					opt.metrics.Observe(opt.hostname, addr, outcomeSuccess, signal.RoundTripDuration)
				}
			}
			if err != nil {
				return &SntpQueryResult{Kind: ResultProtocolError, Cause: err, DebugInfo: debug}
			}
			return &SntpQueryResult{Kind: ResultSuccess, Signal: signal, DebugInfo: debug}

		case OperationTimeAllowedExceeded:
			debug.record(NetworkOperationResult{ServerAddress: addr, Kind: OperationTimeAllowedExceeded})
			if opt.metrics != nil {
				opt.metrics.Observe(opt.hostname, addr, outcomeTimeAllowedExceeded, 0)
			}
			return &SntpQueryResult{Kind: ResultTimeAllowedExceeded, DebugInfo: debug}

		default: // OperationFailure
			f := outcome.failure
			debug.record(NetworkOperationResult{
				ServerAddress:     addr,
				Kind:              OperationFailure,
				FailureIdentifier: f.FailureIdentifier(),
				Cause:             f,
			})
			if opt.metrics != nil {
				outcomeStr := outcomeNonHaltingFailure
				if f.Halting {
					outcomeStr = outcomeHaltingFailure
				}
				opt.metrics.Observe(opt.hostname, addr, outcomeStr, 0)
			}
			if f.Halting {
				opt.logger.Warnf("sntp: halting failure from %s (%s): %v", opt.hostname, addr, f)
				return &SntpQueryResult{Kind: ResultProtocolError, Cause: f, DebugInfo: debug}
			}
			opt.logger.Debugf("sntp: non-halting failure from %s (%s): %v, trying next address", opt.hostname, addr, f)
			causes = multierror.Append(causes, f)
		}
	}

	exhausted := &ProtocolFailure{
		Kind:    FailureIPAddressesExhausted,
		Halting: false,
		Message: fmt.Sprintf("all %d addresses for %s were unreachable or rejected", len(addrs), opt.hostname),
		Cause:   causes.ErrorOrNil(),
	}
	return &SntpQueryResult{Kind: ResultRetryLater, Cause: exhausted, DebugInfo: debug}
}
