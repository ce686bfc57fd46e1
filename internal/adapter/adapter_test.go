package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/transport"
)

func TestIntervalSeconds(t *testing.T) {
	secs, err := IntervalSeconds("stub", "1m")
	require.NoError(t, err)
	assert.Equal(t, int64(60), secs)

	_, err = IntervalSeconds("stub", "7m")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedInterval))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "1700000000", FormatTimestamp(UnitSeconds, 1700000000))
	assert.Equal(t, "1700000000000", FormatTimestamp(UnitMilliseconds, 1700000000))
	assert.Equal(t, "2023-11-14T22:13:20Z", FormatTimestamp(UnitISO8601, 1700000000))
}

func TestNoWebSocket_AlwaysFails(t *testing.T) {
	n := NoWebSocket{Venue: "stub"}
	assert.Empty(t, n.WSSupportedIntervals())

	_, err := n.WSURL()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotSupported))

	_, err = n.WSSubscribePayload("BTC-USDT", "1m")
	require.Error(t, err)

	_, err = n.ParseWSMessage(transport.Frame{})
	require.Error(t, err)
}

func TestTestnetSupport_RestURL(t *testing.T) {
	ts := TestnetSupport{
		Venue:          "stub",
		Network:        netconfig.Testnet(),
		ProductionURLs: map[netconfig.EndpointClass]string{netconfig.EndpointCandles: "https://prod"},
		TestnetURLs:    map[netconfig.EndpointClass]string{netconfig.EndpointCandles: "https://test"},
	}
	url, err := ts.RestURL(netconfig.EndpointCandles)
	require.NoError(t, err)
	assert.Equal(t, "https://test", url)
}

func TestNoTestnet_AlwaysProduction(t *testing.T) {
	nt := NoTestnet{Venue: "stub", URLs: map[netconfig.EndpointClass]string{netconfig.EndpointCandles: "https://only"}}
	url, err := nt.RestURL(netconfig.EndpointCandles)
	require.NoError(t, err)
	assert.Equal(t, "https://only", url)
}

func TestSyncCore_FetchRestCandles(t *testing.T) {
	sc := SyncCore{Fetch: func(pair, interval string, startTime *int64, limit int) ([]candle.Candle, error) {
		return []candle.Candle{{OpenTime: 1}}, nil
	}}
	out, err := sc.FetchRestCandles(context.Background(), nil, "BTC-USDT", "1m", nil, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestSyncCore_RespectsContextCancellation(t *testing.T) {
	sc := SyncCore{Fetch: func(pair, interval string, startTime *int64, limit int) ([]candle.Candle, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := sc.FetchRestCandles(ctx, nil, "BTC-USDT", "1m", nil, 10)
	require.Error(t, err)
}
