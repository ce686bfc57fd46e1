package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/candlefeed/internal/candle"
)

func candleAt(openTime int64, close float64) candle.Candle {
	return candle.Candle{OpenTime: openTime, Open: close, High: close, Low: close, Close: close}
}

func TestSanitize_Empty(t *testing.T) {
	assert.Nil(t, Sanitize(nil, 60))
}

func TestSanitize_Single(t *testing.T) {
	in := []candle.Candle{candleAt(100, 1)}
	out := Sanitize(in, 60)
	require.Len(t, out, 1)
	assert.Equal(t, int64(100), out[0].OpenTime)
}

func TestSanitize_DropsGapAndKeepsLongestRun(t *testing.T) {
	// 0,60,120 is a run of 3; 300 is isolated (gap from 120); tie-break
	// would matter if both runs were equal length, but here [0,60,120] wins
	// outright since it is strictly longer.
	in := []candle.Candle{
		candleAt(0, 1),
		candleAt(60, 2),
		candleAt(120, 3),
		candleAt(300, 4),
	}
	out := Sanitize(in, 60)
	require.Len(t, out, 3)
	assert.Equal(t, []int64{0, 60, 120}, openTimes(out))
}

func TestSanitize_TieBreaksTowardMostRecentRun(t *testing.T) {
	base := int64(1_700_000_000)
	in := []candle.Candle{
		candleAt(base, 1),
		candleAt(base+60, 2),
		// gap here breaks the run
		candleAt(base+300, 3),
		candleAt(base+360, 4),
	}
	out := Sanitize(in, 60)
	require.Len(t, out, 2)
	assert.Equal(t, []int64{base + 300, base + 360}, openTimes(out))
}

func TestSanitize_DedupeKeepsLaterOccurrence(t *testing.T) {
	in := []candle.Candle{
		candleAt(0, 1),
		candleAt(60, 2),
		candleAt(60, 99), // later occurrence of the same open_time
		candleAt(120, 3),
	}
	out := Sanitize(in, 60)
	require.Len(t, out, 3)
	assert.Equal(t, 99.0, out[1].Close)
}

func TestIsSortedEquidistant(t *testing.T) {
	assert.True(t, IsSortedEquidistant(nil, 60))
	assert.True(t, IsSortedEquidistant([]candle.Candle{candleAt(0, 1)}, 60))
	assert.True(t, IsSortedEquidistant([]candle.Candle{candleAt(0, 1), candleAt(60, 2)}, 60))
	assert.False(t, IsSortedEquidistant([]candle.Candle{candleAt(0, 1), candleAt(120, 2)}, 60))
}

func TestApplyMerge_BoundedRingEviction(t *testing.T) {
	var seq []candle.Candle
	for _, ot := range []int64{0, 60, 120, 180, 240} {
		seq = ApplyMerge(seq, 3, candleAt(ot, float64(ot)))
	}
	require.Len(t, seq, 3)
	assert.Equal(t, []int64{120, 180, 240}, openTimes(seq))
}

func TestApplyMerge_InProgressOverwrite(t *testing.T) {
	seq := []candle.Candle{candleAt(0, 1), candleAt(60, 2)}
	updated := candle.Candle{OpenTime: 60, Open: 2, High: 2, Low: 2, Close: 101}
	out := ApplyMerge(seq, 10, updated)
	require.Len(t, out, 2)
	assert.Equal(t, 101.0, out[1].Close)
}

func TestApplyMerge_OutOfOrderPrepend(t *testing.T) {
	base := int64(1_700_000_000)
	seq := []candle.Candle{candleAt(base+60, 1)}
	out := ApplyMerge(seq, 10, candleAt(base, 0))
	require.Len(t, out, 2)
	assert.Equal(t, []int64{base, base + 60}, openTimes(out))
}

func TestApplyMerge_PrependDroppedAtCapacity(t *testing.T) {
	seq := []candle.Candle{candleAt(100, 1), candleAt(200, 2)}
	out := ApplyMerge(seq, 2, candleAt(0, 9))
	require.Len(t, out, 2)
	assert.Equal(t, []int64{100, 200}, openTimes(out))
}

func TestApplyMerge_InRangeInsert(t *testing.T) {
	seq := []candle.Candle{candleAt(0, 1), candleAt(120, 2)}
	out := ApplyMerge(seq, 10, candleAt(60, 9))
	require.Len(t, out, 3)
	assert.Equal(t, []int64{0, 60, 120}, openTimes(out))
}

func openTimes(seq []candle.Candle) []int64 {
	out := make([]int64, len(seq))
	for i, c := range seq {
		out[i] = c.OpenTime
	}
	return out
}
