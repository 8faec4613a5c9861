package sntp

import (
	"context"
	"time"
)

// Default values applied by ClientConfig.withDefaults to a zero-valued
// ClientConfig.
const (
	DefaultPort            = 123
	DefaultResponseTimeout = 5 * time.Second
	DefaultClientVersion   = 3
)

// ClientConfig configures a Client. The zero value is valid: ExecuteQuery
// applies the defaults above to any field left unset.
type ClientConfig struct {
	// Hostname is the DNS name of the NTP service to query, typically
	// backed by a pool or cluster of servers.
	Hostname string
	// Port is the UDP port to query. Defaults to 123.
	Port int
	// ResponseTimeout bounds each individual per-address attempt. Defaults
	// to 5 seconds.
	ResponseTimeout Duration
	// ClientReportedVersion is the NTP version this client claims in its
	// request header; must be 3 or 4. Defaults to 3.
	ClientReportedVersion uint8
	// DataMinimizationEnabled selects the data-minimized (random nonce)
	// transmit-timestamp mode over the nominal (real clock reading) mode.
	// Defaults to true.
	DataMinimizationEnabled bool
	// dataMinimizationSet distinguishes "left zero-valued" from
	// "explicitly set to false", since DataMinimizationEnabled's zero value
	// (false) is not its default (true).
	dataMinimizationSet bool

	// LocalAddress optionally binds the outgoing socket to a specific
	// local IP.
	LocalAddress string
	// TTL optionally bounds the outgoing datagram's IP hop count via
	// golang.org/x/net/ipv4.
	TTL int

	Network       Network
	Ticker        Ticker
	InstantSource InstantSource
	Random        Random
	Logger        Logger
	Metrics       Metrics
}

// DataMinimization sets DataMinimizationEnabled and marks it explicitly
// configured, so withDefaults doesn't override an explicit "false" back to
// the true default. Use this instead of setting the field directly when you
// want data minimization off.
func (c ClientConfig) DataMinimization(enabled bool) ClientConfig {
	c.DataMinimizationEnabled = enabled
	c.dataMinimizationSet = true
	return c
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.ClientReportedVersion == 0 {
		c.ClientReportedVersion = DefaultClientVersion
	}
	if !c.dataMinimizationSet {
		c.DataMinimizationEnabled = true
	}
	if c.Network == nil {
		c.Network = NewSystemNetwork()
	}
	if c.Ticker == nil {
		c.Ticker = NewSystemTicker()
	}
	if c.InstantSource == nil {
		c.InstantSource = NewSystemInstantSource(PrecisionNanos)
	}
	if c.Random == nil {
		c.Random = NewCryptoRandom()
	}
	if c.Logger == nil {
		c.Logger = NewNoopLogger()
	}
	return c
}

// Client queries a hostname (typically a DNS pool of NTP servers) for the
// current time. A Client holds no state between calls and is safe for
// concurrent use as long as its configured collaborators are.
type Client struct {
	config ClientConfig
}

// NewClient returns a Client configured by config, with defaults applied.
func NewClient(config ClientConfig) *Client {
	return &Client{config: config.withDefaults()}
}

// ExecuteQuery runs one query against the configured hostname, optionally
// bounded by an overall time-allowed budget across every address attempted.
// It never returns a bare networking or protocol error: every outcome is
// surfaced through the returned SntpQueryResult.
func (c *Client) ExecuteQuery(ctx context.Context, timeAllowed *Duration) *SntpQueryResult {
	opt := &clusterQueryOptions{
		hostname:              c.config.Hostname,
		port:                  c.config.Port,
		responseTimeout:       c.config.ResponseTimeout,
		timeAllowed:           timeAllowed,
		clientReportedVersion: c.config.ClientReportedVersion,
		dataMinimization:      c.config.DataMinimizationEnabled,
		localAddress:          c.config.LocalAddress,
		ttl:                   c.config.TTL,
		network:               c.config.Network,
		ticker:                c.config.Ticker,
		instantSource:         c.config.InstantSource,
		random:                c.config.Random,
		logger:                c.config.Logger,
		metrics:               c.config.Metrics,
	}
	return executeClusteredQuery(ctx, opt)
}

// ExecuteQuery is a package-level convenience wrapping NewClient(config) and
// a single ExecuteQuery call, for callers who don't need to reuse a Client
// across queries.
func ExecuteQuery(ctx context.Context, config ClientConfig, timeAllowed *Duration) *SntpQueryResult {
	return NewClient(config).ExecuteQuery(ctx, timeAllowed)
}
