package sntp

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigWithDefaults(t *testing.T) {
	c := ClientConfig{Hostname: "time.example.com"}.withDefaults()
	assert.Equal(t, DefaultPort, c.Port)
	assert.Equal(t, DefaultResponseTimeout, c.ResponseTimeout)
	assert.Equal(t, uint8(DefaultClientVersion), c.ClientReportedVersion)
	assert.True(t, c.DataMinimizationEnabled)
	assert.NotNil(t, c.Network)
	assert.NotNil(t, c.Ticker)
	assert.NotNil(t, c.InstantSource)
	assert.NotNil(t, c.Random)
	assert.NotNil(t, c.Logger)
}

func TestClientConfigDataMinimizationExplicitFalseSurvivesDefaults(t *testing.T) {
	c := ClientConfig{Hostname: "time.example.com"}.DataMinimization(false).withDefaults()
	assert.False(t, c.DataMinimizationEnabled)
}

func TestClientExecuteQueryWiresThroughToClusterQuery(t *testing.T) {
	ticker := newFakeTicker()
	serverReceive, err := Timestamp64FromInstant(ticker.cur.Add(5 * time.Millisecond))
	require.NoError(t, err)
	serverTransmit, err := Timestamp64FromInstant(ticker.cur.Add(15 * time.Millisecond))
	require.NoError(t, err)

	addr := netip.MustParseAddr("203.0.113.1")
	net := &fakeNetwork{
		addrs: []netip.Addr{addr},
		scenarios: map[netip.Addr]*attemptScenario{addr: {
			forwardDelay: 10 * time.Millisecond,
			returnDelay:  10 * time.Millisecond,
			buildResponse: func(req *NtpHeader) *NtpHeader {
				return goodResponse(req, 1, serverReceive, serverTransmit)
			},
		}},
		ticker: ticker,
	}

	client := NewClient(ClientConfig{
		Hostname:      "time.example.com",
		Network:       net,
		Ticker:        ticker,
		InstantSource: &fakeInstantSource{cur: ticker.cur, precision: PrecisionNanos},
		Random:        fakeRandom{v: 42},
		Logger:        fakeLogger{},
	})

	result := client.ExecuteQuery(context.Background(), nil)
	require.Equal(t, ResultSuccess, result.Kind)
	assert.Equal(t, uint8(1), result.Signal.Stratum)
}

func TestPackageLevelExecuteQuery(t *testing.T) {
	ticker := newFakeTicker()
	net := &fakeNetwork{resolveErr: assertErr("no such host"), ticker: ticker}
	result := ExecuteQuery(context.Background(), ClientConfig{
		Hostname: "time.example.com",
		Network:  net,
		Ticker:   ticker,
	}, nil)
	assert.Equal(t, ResultRetryLater, result.Kind)
}
