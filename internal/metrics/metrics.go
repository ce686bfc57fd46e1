// Package metrics exposes Prometheus instrumentation for running feeds.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric a feed reports. One Registry is normally
// shared process-wide and registered against prometheus.DefaultRegisterer
// (or an isolated registry in tests).
type Registry struct {
	MergesTotal      *prometheus.CounterVec
	ParseErrorsTotal *prometheus.CounterVec
	ReconnectsTotal  *prometheus.CounterVec
	FeedReady        *prometheus.GaugeVec
	StoreSize        *prometheus.GaugeVec
	PollDuration     *prometheus.HistogramVec
}

// NewRegistry builds a fresh Registry with all candlefeed metrics defined.
func NewRegistry() *Registry {
	return &Registry{
		MergesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlefeed_merges_total",
				Help: "Total number of candles merged into a feed's store.",
			},
			[]string{"exchange", "pair", "interval"},
		),
		ParseErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlefeed_parse_errors_total",
				Help: "Total number of adapter parse errors encountered.",
			},
			[]string{"exchange", "pair", "interval", "source"},
		),
		ReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlefeed_ws_reconnects_total",
				Help: "Total number of streaming strategy reconnect attempts.",
			},
			[]string{"exchange", "pair", "interval"},
		),
		FeedReady: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlefeed_ready",
				Help: "1 when a feed's store is ready (>=90% full, no gaps), else 0.",
			},
			[]string{"exchange", "pair", "interval"},
		),
		StoreSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlefeed_store_size",
				Help: "Current number of candles held in a feed's store.",
			},
			[]string{"exchange", "pair", "interval"},
		),
		PollDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlefeed_poll_duration_seconds",
				Help:    "Duration of one polling-strategy REST fetch.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"exchange", "pair", "interval"},
		),
	}
}

// MustRegister registers every metric in r against reg.
func (r *Registry) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		r.MergesTotal,
		r.ParseErrorsTotal,
		r.ReconnectsTotal,
		r.FeedReady,
		r.StoreSize,
		r.PollDuration,
	)
}
