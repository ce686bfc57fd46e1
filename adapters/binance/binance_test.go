package binance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/transport"
)

// fakeTransport returns a canned status/body for every HTTPGet, letting a
// test exercise FetchRestCandles' status classification without touching
// the network.
type fakeTransport struct {
	status int
	body   []byte
}

func (f *fakeTransport) HTTPGet(ctx context.Context, url string, params, headers map[string]string) (*transport.Response, error) {
	return &transport.Response{StatusCode: f.status, Body: f.body}, nil
}
func (f *fakeTransport) WSConnect(ctx context.Context, url string) (transport.Session, error) {
	return nil, nil
}
func (f *fakeTransport) Close() error { return nil }

func TestAdapter_FormatPair(t *testing.T) {
	a := New(netconfig.Production())
	sym, err := a.FormatPair("btc-usdt")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", sym)

	_, err = a.FormatPair("btcusdt")
	require.Error(t, err, "pair without a separator must be rejected")
}

func TestAdapter_RestParams_ClampsLimitAndDefaultsStartTime(t *testing.T) {
	a := New(netconfig.Production())
	params, err := a.RestParams("BTC-USDT", "1m", nil, 5000)
	require.NoError(t, err)
	assert.Equal(t, "1000", params["limit"])
	assert.Equal(t, "BTCUSDT", params["symbol"])
	_, hasStart := params["startTime"]
	assert.False(t, hasStart)
}

func TestAdapter_RestParams_UnsupportedInterval(t *testing.T) {
	a := New(netconfig.Production())
	_, err := a.RestParams("BTC-USDT", "2m", nil, 10)
	require.Error(t, err)
}

func TestAdapter_ParseRestResponse_ArrayOfArrays(t *testing.T) {
	a := New(netconfig.Production())
	body := []byte(`[
		[1620000000000,"100.0","110.0","90.0","105.0","12.5",1620000059999,"1300.0",42,"6.0","630.0","0"]
	]`)
	candles, err := a.ParseRestResponse(body)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	c := candles[0]
	assert.Equal(t, int64(1620000000), c.OpenTime)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 105.0, c.Close)
	assert.Equal(t, int64(42), c.NTrades)
	assert.True(t, c.HasQuoteVolume)
}

func TestAdapter_ParseRestResponse_ErrorObject(t *testing.T) {
	a := New(netconfig.Production())
	_, err := a.ParseRestResponse([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	require.Error(t, err)
}

func TestAdapter_FetchRestCandles_RetryableStatus(t *testing.T) {
	a := New(netconfig.Production())
	tp := &fakeTransport{status: 429}
	_, err := a.FetchRestCandles(context.Background(), tp, "BTC-USDT", "1m", nil, 10)
	require.Error(t, err)
}

func TestAdapter_FetchRestCandles_Success(t *testing.T) {
	a := New(netconfig.Production())
	body := []byte(`[[1620000000000,"100.0","110.0","90.0","105.0","12.5",1620000059999,"1300.0",42,"6.0","630.0","0"]]`)
	tp := &fakeTransport{status: 200, body: body}
	candles, err := a.FetchRestCandles(context.Background(), tp, "BTC-USDT", "1m", nil, 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
}

func TestAdapter_WSSubscribePayload(t *testing.T) {
	a := New(netconfig.Production())
	frame, err := a.WSSubscribePayload("BTC-USDT", "1m")
	require.NoError(t, err)
	assert.Contains(t, string(frame.Data), "btcusdt@kline_1m")
	assert.Contains(t, string(frame.Data), "SUBSCRIBE")
}

func TestAdapter_ParseWSMessage(t *testing.T) {
	a := New(netconfig.Production())
	raw := []byte(`{"stream":"btcusdt@kline_1m","data":{"e":"kline","k":{
		"t":1620000000000,"o":"100.0","h":"110.0","l":"90.0","c":"105.0",
		"v":"12.5","q":"1300.0","n":42,"V":"6.0","Q":"630.0"}}}`)

	candles, err := a.ParseWSMessage(transport.Frame{Data: raw, IsText: true})
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(1620000000), candles[0].OpenTime)
	assert.Equal(t, 105.0, candles[0].Close)
}

func TestAdapter_ParseWSMessage_NonKlineFrameIgnored(t *testing.T) {
	a := New(netconfig.Production())
	candles, err := a.ParseWSMessage(transport.Frame{Data: []byte(`{"result":null,"id":1}`), IsText: true})
	require.NoError(t, err)
	assert.Nil(t, candles)
}
