package sntp

// performNtpCalculations takes a successful query attempt, computes the
// round-trip duration and client offset, and packages the TimeSignal.
// requestInstant is the t1Instant captured by the attempt (the client's
// request time); the wall clock is never consulted again. The response
// instant is dead-reckoned from the monotonic tick delta instead, so a
// wall-clock step between send and receive can't corrupt the measurement.
func performNtpCalculations(result *successResult) (*TimeSignal, error) {
	response := result.response

	t1, err := Timestamp64FromInstant(result.t1Instant)
	if err != nil {
		return nil, &ProtocolFailure{Message: "request instant could not be converted to an ntp timestamp", Cause: err}
	}
	t2 := response.ReceiveTimestamp()
	t3 := response.TransmitTimestamp()

	totalDuration := result.ticker.Between(result.t1Ticks, result.t4Ticks)

	serverProcessingDuration := Timestamp64Between(t2, t3).ToDuration()
	if serverProcessingDuration < 0 || serverProcessingDuration > totalDuration {
		return nil, &ProtocolFailure{Message: "server processing duration outside total transaction duration"}
	}

	roundTripDuration := totalDuration - serverProcessingDuration
	responseInstant := result.t1Instant.Add(totalDuration)

	t4, err := Timestamp64FromInstant(responseInstant)
	if err != nil {
		return nil, &ProtocolFailure{Message: "response instant could not be converted to an ntp timestamp", Cause: err}
	}

	// skew = ((t2-t1) + (t3-t4)) / 2, the standard NTP offset formula.
	clientOffset := Timestamp64Between(t1, t2).Add(Timestamp64Between(t4, t3)).DivInt64(2)

	adjustedInstant := responseInstant.Add(clientOffset.ToDuration())

	pollInterval, err := response.PollInterval()
	if err != nil {
		pollInterval = 0
	}

	refID := response.ReferenceID()

	return &TimeSignal{
		ServerAddress:            result.serverAddress,
		Stratum:                  response.Stratum(),
		PrecisionExp:             response.PrecisionExponent(),
		PollInterval:             pollInterval,
		RootDelay:                response.RootDelay(),
		RootDispersion:           response.RootDispersion(),
		ReferenceID:              refID,
		ReferenceIDStr:           response.ReferenceIDString(),
		ReferenceTime:            response.ReferenceTimestamp(),
		Leap:                     response.Leap(),
		ResponseTicks:            result.t4Ticks,
		ResponseInstant:          responseInstant,
		RoundTripDuration:        roundTripDuration,
		TotalTransactionDuration: totalDuration,
		ClientOffset:             clientOffset,
		AdjustedInstant:          adjustedInstant,
	}, nil
}
