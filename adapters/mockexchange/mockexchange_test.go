package mockexchange

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/transport"
)

func TestAdapter_SeedAndFetchRestCandles(t *testing.T) {
	a := New()
	a.Seed("BTC-USDT", "1m", []candle.Candle{
		{OpenTime: 120, Close: 3},
		{OpenTime: 0, Close: 1},
		{OpenTime: 60, Close: 2},
	})

	out, err := a.FetchRestCandles(context.Background(), nil, "BTC-USDT", "1m", nil, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, int64(0), out[0].OpenTime, "seeded candles must be served sorted ascending")
	assert.Equal(t, int64(120), out[2].OpenTime)
}

func TestAdapter_FetchRestCandles_StartTimeFilter(t *testing.T) {
	a := New()
	a.Seed("BTC-USDT", "1m", []candle.Candle{{OpenTime: 0}, {OpenTime: 60}, {OpenTime: 120}})

	start := int64(60)
	out, err := a.FetchRestCandles(context.Background(), nil, "BTC-USDT", "1m", &start, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(60), out[0].OpenTime)
}

func TestAdapter_FetchRestCandles_LimitTruncates(t *testing.T) {
	a := New()
	a.Seed("BTC-USDT", "1m", []candle.Candle{{OpenTime: 0}, {OpenTime: 60}, {OpenTime: 120}})

	out, err := a.FetchRestCandles(context.Background(), nil, "BTC-USDT", "1m", nil, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestAdapter_FetchRestCandles_UnsupportedInterval(t *testing.T) {
	a := New()
	_, err := a.FetchRestCandles(context.Background(), nil, "BTC-USDT", "3m", nil, 0)
	require.Error(t, err)
}

func TestAdapter_QueueWSCandleAndParseWSMessage(t *testing.T) {
	a := New()
	frame, err := a.WSSubscribePayload("BTC-USDT", "1m")
	require.NoError(t, err)
	assert.True(t, frame.IsText)

	c := candle.Candle{OpenTime: 300, Close: 99}
	a.QueueWSCandle("BTC-USDT", "1m", c)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	wsFrame := transport.Frame{Data: data, IsText: true}
	out, err := a.ParseWSMessage(wsFrame)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(300), out[0].OpenTime)
}

func TestAdapter_ParseWSMessage_NonCandleFrameIgnored(t *testing.T) {
	a := New()
	out, err := a.ParseWSMessage(transport.Frame{Data: []byte("not json"), IsText: true})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestAdapter_WSSubscribePayload_UnsupportedInterval(t *testing.T) {
	a := New()
	_, err := a.WSSubscribePayload("BTC-USDT", "1d")
	require.Error(t, err)
}
