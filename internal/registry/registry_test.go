package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/candlefeed/internal/adapter"
	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/transport"
)

type stubAdapter struct{ adapter.NoWebSocket }

func (s stubAdapter) Name() string                                    { return "stub" }
func (s stubAdapter) FormatPair(p string) (string, error)              { return p, nil }
func (s stubAdapter) SupportedIntervals() map[string]int64             { return nil }
func (s stubAdapter) TimestampUnit() adapter.TimestampUnit              { return adapter.UnitSeconds }
func (s stubAdapter) RestURL(c netconfig.EndpointClass) (string, error) { return "", nil }
func (s stubAdapter) RestParams(p, i string, st *int64, l int) (map[string]string, error) {
	return nil, nil
}
func (s stubAdapter) ParseRestResponse(body []byte) ([]candle.Candle, error) { return nil, nil }
func (s stubAdapter) FetchRestCandles(ctx context.Context, t transport.Transport, pair, interval string, startTime *int64, limit int) ([]candle.Candle, error) {
	return nil, nil
}

func TestRegister_ResolveAndList(t *testing.T) {
	defer reset()
	Register("stub", func(network *netconfig.Config) (adapter.Adapter, error) {
		return stubAdapter{NoWebSocket: adapter.NoWebSocket{Venue: "stub"}}, nil
	})

	a, err := Resolve("stub", netconfig.Production())
	require.NoError(t, err)
	assert.Equal(t, "stub", a.Name())

	assert.Contains(t, List(), "stub")
}

func TestResolve_UnknownExchange(t *testing.T) {
	defer reset()
	_, err := Resolve("does-not-exist", netconfig.Production())
	require.Error(t, err)
	assert.True(t, adapter.IsKind(err, adapter.KindUnknownExchange))
}
