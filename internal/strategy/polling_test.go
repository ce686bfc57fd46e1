package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/candlefeed/adapters/mockexchange"
	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/store"
)

func seedCandles(a *mockexchange.Adapter, pair, interval string, n int, intervalSecs int64) {
	candles := make([]candle.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = candle.Candle{OpenTime: int64(i) * intervalSecs, Close: float64(i)}
	}
	a.Seed(pair, interval, candles)
}

func TestPollingStrategy_PollOnce(t *testing.T) {
	a := mockexchange.New()
	seedCandles(a, "BTC-USDT", "1m", 5, 60)

	ps := NewPollingStrategy(PollingDeps{
		Adapter:      a,
		Store:        store.New(10, 60),
		Pair:         "BTC-USDT",
		Interval:     "1m",
		IntervalSecs: 60,
		Labels:       Labels{Exchange: "mockexchange", Pair: "BTC-USDT", Interval: "1m"},
	})

	start := int64(0)
	out, err := ps.PollOnce(context.Background(), &start, nil, intPtr(5))
	require.NoError(t, err)
	assert.Len(t, out, 5)
}

func TestPollingStrategy_LastCompleteOpenTime_SingleCandle(t *testing.T) {
	st := store.New(10, 60)
	st.Merge(candle.Candle{OpenTime: 120})

	ps := NewPollingStrategy(PollingDeps{Store: st, IntervalSecs: 60})
	ts := ps.lastCompleteOpenTime(1000)
	require.NotNil(t, ts)
	assert.Equal(t, int64(120), *ts)
}

func TestPollingStrategy_LastCompleteOpenTime_MultipleCandles(t *testing.T) {
	st := store.New(10, 60)
	st.Merge(candle.Candle{OpenTime: 0})
	st.Merge(candle.Candle{OpenTime: 60})
	st.Merge(candle.Candle{OpenTime: 120})

	ps := NewPollingStrategy(PollingDeps{Store: st, IntervalSecs: 60})
	// now = 150: candle at 120 completes at 180 > 150, so the most recent
	// *complete* candle is 60 (completes at 120 <= 150).
	ts := ps.lastCompleteOpenTime(150)
	require.NotNil(t, ts)
	assert.Equal(t, int64(60), *ts)
}

func TestPollingStrategy_StartStop(t *testing.T) {
	a := mockexchange.New()
	seedCandles(a, "BTC-USDT", "1m", 3, 60)
	st := store.New(5, 60)

	ps := NewPollingStrategy(PollingDeps{
		Adapter:      a,
		Store:        st,
		Pair:         "BTC-USDT",
		Interval:     "1m",
		IntervalSecs: 60,
		Labels:       Labels{Exchange: "mockexchange", Pair: "BTC-USDT", Interval: "1m"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ps.Start(ctx))
	// Give the initial-fill goroutine a moment; Stop is bounded regardless.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ps.Stop())
	assert.Equal(t, StateStopped, ps.State())

	// A second Stop must be a safe no-op.
	require.NoError(t, ps.Stop())
}

func intPtr(i int) *int { return &i }
