package adapter

import (
	"context"

	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/transport"
)

// Intervals is the fixed catalog of canonical interval strings and their
// duration in seconds, shared by every adapter.
var Intervals = map[string]int64{
	"1m":  60,
	"3m":  180,
	"5m":  300,
	"15m": 900,
	"30m": 1800,
	"1h":  3600,
	"2h":  7200,
	"4h":  14400,
	"6h":  21600,
	"8h":  28800,
	"12h": 43200,
	"1d":  86400,
	"3d":  259200,
	"1w":  604800,
	"1M":  2592000,
}

// IntervalSeconds resolves a canonical interval string, returning
// UnsupportedInterval when the string is not in the fixed catalog.
func IntervalSeconds(venue, interval string) (int64, error) {
	secs, ok := Intervals[interval]
	if !ok {
		return 0, NewError(KindUnsupportedInterval, venue, "unknown interval "+interval, nil)
	}
	return secs, nil
}

// TimestampUnit names the wire unit a venue's REST timestamps are shaped
// in; the base converter in rest.go translates internal second-precision
// timestamps into whichever one the adapter declares.
type TimestampUnit int

const (
	UnitSeconds TimestampUnit = iota
	UnitMilliseconds
	UnitISO8601
)

// Adapter is the capability surface every venue implements: pair
// formatting, interval catalog, REST shaping/parsing, and (optionally) WS
// shaping/parsing. The core never type-switches on a concrete adapter; it
// only calls through this interface.
type Adapter interface {
	// Name is the exchange name this adapter instance was resolved under.
	Name() string

	// FormatPair converts a canonical "BASE-QUOTE" pair into whatever the
	// venue's wire format expects. Pure function; injective over the
	// adapter's registered pair set.
	FormatPair(canonical string) (string, error)

	// SupportedIntervals returns the intervals the venue offers over REST.
	SupportedIntervals() map[string]int64

	// WSSupportedIntervals returns the subset of SupportedIntervals the
	// venue streams. May be empty for a REST-only adapter.
	WSSupportedIntervals() map[string]struct{}

	// TimestampUnit declares the wire unit this adapter's REST timestamps
	// use, so the shared rest param builder can convert uniformly.
	TimestampUnit() TimestampUnit

	// RestURL resolves the REST endpoint for the given endpoint class
	// under this adapter's network config.
	RestURL(class netconfig.EndpointClass) (string, error)

	// RestParams shapes the query parameters for a candles request.
	RestParams(pair, interval string, startTime *int64, limit int) (map[string]string, error)

	// ParseRestResponse parses a REST response body into candles, in
	// ascending open_time order or a permutation thereof.
	ParseRestResponse(body []byte) ([]candle.Candle, error)

	// FetchRestCandles orchestrates RestURL + RestParams + transport call +
	// ParseRestResponse. Sync-only adapters get this for free from
	// SyncCore; async/native adapters implement it directly against the
	// injected transport.
	FetchRestCandles(ctx context.Context, t transport.Transport, pair, interval string, startTime *int64, limit int) ([]candle.Candle, error)

	// WSURL resolves the WebSocket endpoint. Adapters without streaming
	// support return a NotSupported error.
	WSURL() (string, error)

	// WSSubscribePayload builds the subscribe frame for pair/interval.
	WSSubscribePayload(pair, interval string) (transport.Frame, error)

	// ParseWSMessage parses one inbound frame. It returns (nil, nil) for
	// non-candle frames (heartbeats, acks, errors) which the streaming
	// strategy silently ignores.
	ParseWSMessage(frame transport.Frame) ([]candle.Candle, error)
}
