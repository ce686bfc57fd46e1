package strategy

import (
	"time"

	"github.com/sawpanic/candlefeed/internal/metrics"
)

// alignDown rounds ts down to the nearest multiple of intervalSecs, per
// the "interval alignment" rule used by both strategies' initial fill.
func alignDown(ts, intervalSecs int64) int64 {
	if intervalSecs <= 0 {
		return ts
	}
	rem := ts % intervalSecs
	if rem < 0 {
		rem += intervalSecs
	}
	return ts - rem
}

func nowAligned(intervalSecs int64) int64 {
	return alignDown(time.Now().Unix(), intervalSecs)
}

// Labels identifies a feed for structured logging and metric export.
type Labels struct {
	Exchange string
	Pair     string
	Interval string
}

// observeMerge records a merge against the optional metrics registry. reg
// may be nil, in which case this is a no-op (metrics are an ambient
// concern, not a hard dependency of the strategies).
func observeMerge(reg *metrics.Registry, l Labels) {
	if reg == nil {
		return
	}
	reg.MergesTotal.WithLabelValues(l.Exchange, l.Pair, l.Interval).Inc()
}

func observeParseError(reg *metrics.Registry, l Labels, source string) {
	if reg == nil {
		return
	}
	reg.ParseErrorsTotal.WithLabelValues(l.Exchange, l.Pair, l.Interval, source).Inc()
}

func observeReconnect(reg *metrics.Registry, l Labels) {
	if reg == nil {
		return
	}
	reg.ReconnectsTotal.WithLabelValues(l.Exchange, l.Pair, l.Interval).Inc()
}
