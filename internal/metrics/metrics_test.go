package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MergesTotalIncrements(t *testing.T) {
	reg := NewRegistry()
	registerer := prometheus.NewRegistry()
	reg.MustRegister(registerer)

	reg.MergesTotal.WithLabelValues("binance", "BTC-USDT", "1m").Inc()

	metricFamilies, err := registerer.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "candlefeed_merges_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.Metric, 1)
	require.Equal(t, float64(1), found.Metric[0].GetCounter().GetValue())
}
