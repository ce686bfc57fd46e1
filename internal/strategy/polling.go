package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/candlefeed/internal/adapter"
	"github.com/sawpanic/candlefeed/internal/breaker"
	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/metrics"
	"github.com/sawpanic/candlefeed/internal/processor"
	"github.com/sawpanic/candlefeed/internal/store"
	"github.com/sawpanic/candlefeed/internal/transport"
)

// PollingDeps bundles everything a PollingStrategy needs so Feed can build
// one without the strategy package depending on the feed package.
type PollingDeps struct {
	Adapter      adapter.Adapter
	Transport    transport.Transport
	Store        *store.Store
	Breaker      *breaker.Breaker
	Metrics      *metrics.Registry
	Pair         string
	Interval     string
	IntervalSecs int64
	Labels       Labels
}

// PollingStrategy is the timer-driven REST pull collection strategy:
// idle -> initializing -> steady -> stopping -> stopped.
type PollingStrategy struct {
	deps PollingDeps

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewPollingStrategy constructs an idle polling strategy.
func NewPollingStrategy(deps PollingDeps) *PollingStrategy {
	return &PollingStrategy{deps: deps, state: StateIdle}
}

// State returns the strategy's current lifecycle state.
func (p *PollingStrategy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start begins the polling loop in a background goroutine. A second call
// while already running is a no-op (idempotent).
func (p *PollingStrategy) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle && p.state != StateStopped {
		p.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.stopped = make(chan struct{})
	p.state = StateInitializing
	stopped := p.stopped
	p.mu.Unlock()

	go p.run(runCtx, stopped)
	return nil
}

// Stop cancels the polling loop and waits up to ShutdownBound for it to
// exit. Idempotent; safe to call on a strategy that never started.
func (p *PollingStrategy) Stop() error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	stopped := p.stopped
	p.state = StateStopping
	p.mu.Unlock()

	cancel()
	select {
	case <-stopped:
	case <-time.After(ShutdownBound):
		log.Warn().Str("exchange", p.deps.Labels.Exchange).Str("pair", p.deps.Labels.Pair).
			Msg("polling strategy shutdown exceeded bound")
	}

	p.mu.Lock()
	p.state = StateStopped
	p.mu.Unlock()
	return nil
}

func (p *PollingStrategy) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *PollingStrategy) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	end := nowAligned(p.deps.IntervalSecs)
	start := end - p.deps.IntervalSecs*int64(p.deps.Store.Capacity())
	limit := p.deps.Store.Capacity()
	if candles, err := p.poll(ctx, &start, &end, &limit); err != nil {
		log.Warn().Err(err).Str("exchange", p.deps.Labels.Exchange).Str("pair", p.deps.Labels.Pair).
			Msg("polling strategy initial fill failed")
	} else {
		for _, c := range candles {
			p.deps.Store.Merge(c)
			observeMerge(p.deps.Metrics, p.deps.Labels)
		}
	}

	p.setState(StateSteady)

	for {
		if ctx.Err() != nil {
			return
		}

		lastComplete := p.lastCompleteOpenTime(time.Now().Unix())
		candles, err := p.poll(ctx, lastComplete, nil, nil)
		if err != nil {
			log.Warn().Err(err).Str("exchange", p.deps.Labels.Exchange).Str("pair", p.deps.Labels.Pair).
				Msg("polling strategy tick failed, retrying in 1s")
		} else {
			for _, c := range candles {
				p.deps.Store.Merge(c)
				observeMerge(p.deps.Metrics, p.deps.Labels)
			}
		}

		sleep := time.Duration(p.deps.IntervalSecs) * time.Second / 2
		if sleep < time.Second {
			sleep = time.Second
		}
		if err != nil {
			sleep = time.Second // transient error: no exponential backoff, self-paced floor
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// lastCompleteOpenTime returns the start_time for the next incremental
// fetch: the most recent candle whose OpenTime+interval <= now. When the
// store holds exactly one candle the original source used that candle's
// own OpenTime, which is ambiguous but harmless since merge is idempotent;
// preserved here rather than silently changed.
func (p *PollingStrategy) lastCompleteOpenTime(now int64) *int64 {
	candles := p.deps.Store.Snapshot()
	if len(candles) == 0 {
		return nil
	}
	if len(candles) == 1 {
		ot := candles[0].OpenTime
		return &ot
	}

	best := candles[0].OpenTime
	found := false
	for _, c := range candles {
		if c.OpenTime+p.deps.IntervalSecs <= now && c.OpenTime >= best {
			best = c.OpenTime
			found = true
		}
	}
	if !found {
		ot := candles[0].OpenTime
		return &ot
	}
	return &best
}

// PollOnce performs a one-shot REST fetch and sanitize without touching
// the store's steady-state loop. end_time defaults to now (interval
// aligned); start_time defaults to end_time - limit*interval when limit is
// given. This is what Feed.Fetch calls to satisfy ad-hoc historical
// queries, and what Start uses for its initial fill.
func (p *PollingStrategy) PollOnce(ctx context.Context, startTime, endTime *int64, limit *int) ([]candle.Candle, error) {
	return p.poll(ctx, startTime, endTime, limit)
}

func (p *PollingStrategy) poll(ctx context.Context, startTime, endTime *int64, limit *int) ([]candle.Candle, error) {
	end := endTime
	if end == nil {
		e := nowAligned(p.deps.IntervalSecs)
		end = &e
	}

	var start *int64
	switch {
	case startTime == nil && limit != nil:
		s := *end - int64(*limit)*p.deps.IntervalSecs
		start = &s
	case startTime != nil:
		s := alignDown(*startTime, p.deps.IntervalSecs)
		start = &s
	}

	lim := 500
	if limit != nil {
		lim = *limit
	}

	fetch := func() (any, error) {
		return p.deps.Adapter.FetchRestCandles(ctx, p.deps.Transport, p.deps.Pair, p.deps.Interval, start, lim)
	}

	var candles []candle.Candle
	if p.deps.Breaker != nil {
		res, err := p.deps.Breaker.Execute(fetch)
		if err != nil {
			return nil, err
		}
		candles = res.([]candle.Candle)
	} else {
		res, err := fetch()
		if err != nil {
			return nil, err
		}
		candles = res.([]candle.Candle)
	}

	return processor.Sanitize(candles, p.deps.IntervalSecs), nil
}
