package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandle_Equal(t *testing.T) {
	a := Candle{OpenTime: 100, Close: 1}
	b := Candle{OpenTime: 100, Close: 2}
	c := Candle{OpenTime: 200, Close: 1}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestCandle_Validate_OK(t *testing.T) {
	c := Candle{OpenTime: 100, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5}
	require.NoError(t, c.Validate())
}

func TestCandle_Validate_LowAboveMinOpenClose(t *testing.T) {
	c := Candle{OpenTime: 100, Open: 10, High: 12, Low: 10.5, Close: 11, Volume: 5}
	require.Error(t, c.Validate())
}

func TestCandle_Validate_LowAboveHigh(t *testing.T) {
	c := Candle{OpenTime: 100, Open: 10, High: 9, Low: 9.5, Close: 8, Volume: 5}
	require.Error(t, c.Validate())
}

func TestCandle_Validate_HighBelowMaxOpenClose(t *testing.T) {
	c := Candle{OpenTime: 100, Open: 10, High: 10.5, Low: 9, Close: 11, Volume: 5}
	require.Error(t, c.Validate())
}

func TestCandle_Validate_NegativeVolume(t *testing.T) {
	c := Candle{OpenTime: 100, Open: 10, High: 12, Low: 9, Close: 11, Volume: -1}
	require.Error(t, c.Validate())
}
