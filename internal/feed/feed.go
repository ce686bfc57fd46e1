// Package feed ties an adapter, transport, store, and collection strategy
// together into a single public entry point: one Feed per
// (exchange, pair, interval).
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/candlefeed/internal/adapter"
	"github.com/sawpanic/candlefeed/internal/breaker"
	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/metrics"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/registry"
	"github.com/sawpanic/candlefeed/internal/store"
	"github.com/sawpanic/candlefeed/internal/strategy"
	"github.com/sawpanic/candlefeed/internal/transport"
)

// Mode selects which collection strategy a Feed runs.
type Mode string

const (
	// ModeAuto picks streaming when the adapter supports it for the
	// requested interval, falling back to polling otherwise.
	ModeAuto      Mode = "auto"
	ModeStreaming Mode = "streaming"
	ModePolling   Mode = "polling"
)

// Config parameterizes a single Feed instance.
type Config struct {
	Exchange string
	Pair     string
	Interval string
	Mode     Mode

	// Capacity bounds the store's ring size. Defaults to 500 when zero.
	Capacity int

	// Network selects production/testnet routing; defaults to Production().
	Network *netconfig.Config

	// HostConfig tunes the built-in transport when Bundle is nil.
	HostConfig *transport.HostConfig
	// Bundle, when non-nil, delegates networking to a host framework
	// instead of the built-in transport.
	Bundle *transport.HostBundle

	// Metrics is the optional shared Prometheus registry. Nil disables
	// instrumentation.
	Metrics *metrics.Registry

	// Breakers enables circuit breaking around REST/WS calls. Defaults to
	// true.
	Breakers *bool
}

// Feed is one running (or idle) collection of candles for a single
// exchange/pair/interval triple.
type Feed struct {
	id       string
	cfg      Config
	adapter  adapter.Adapter
	tp       transport.Transport
	store    *store.Store
	labels   strategy.Labels

	mu       sync.Mutex
	mode     Mode
	polling  *strategy.PollingStrategy
	streamer *strategy.StreamingStrategy
	started  bool
}

// New resolves the adapter from the registry, builds the transport and
// store, and returns an idle Feed. It does not start collection; call
// Start for that.
func New(cfg Config) (*Feed, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}
	network := cfg.Network
	if network == nil {
		network = netconfig.Production()
	}

	a, err := registry.Resolve(cfg.Exchange, network)
	if err != nil {
		return nil, err
	}

	intervalSecs, err := adapter.IntervalSeconds(cfg.Exchange, cfg.Interval)
	if err != nil {
		return nil, err
	}

	tp := transport.Factory(cfg.HostConfig, cfg.Bundle)
	st := store.New(cfg.Capacity, intervalSecs)

	f := &Feed{
		id:      uuid.NewString(),
		cfg:     cfg,
		adapter: a,
		tp:      tp,
		store:   st,
		labels: strategy.Labels{
			Exchange: cfg.Exchange,
			Pair:     cfg.Pair,
			Interval: cfg.Interval,
		},
	}
	return f, nil
}

// ID returns the feed's correlation identifier, for structured logging.
func (f *Feed) ID() string { return f.id }

func (f *Feed) breakersEnabled() bool {
	if f.cfg.Breakers == nil {
		return true
	}
	return *f.cfg.Breakers
}

func (f *Feed) newBreaker(purpose string) *breaker.Breaker {
	if !f.breakersEnabled() {
		return nil
	}
	return breaker.New(fmt.Sprintf("%s:%s:%s", f.cfg.Exchange, f.cfg.Pair, purpose))
}

// resolveMode applies ModeAuto's selection rule: stream when the adapter
// declares WS support for this interval, else poll.
func (f *Feed) resolveMode() Mode {
	if f.cfg.Mode != "" && f.cfg.Mode != ModeAuto {
		return f.cfg.Mode
	}
	if _, ok := f.adapter.WSSupportedIntervals()[f.cfg.Interval]; ok {
		return ModeStreaming
	}
	return ModePolling
}

// wsSupported reports whether the adapter can stream the feed's interval.
func (f *Feed) wsSupported() bool {
	_, ok := f.adapter.WSSupportedIntervals()[f.cfg.Interval]
	return ok
}

// Start begins collection under the resolved mode. Idempotent: a second
// call while already running is a no-op.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return nil
	}
	mode := f.resolveMode()
	if mode == ModeStreaming && !f.wsSupported() {
		f.mu.Unlock()
		return adapter.NewError(adapter.KindNotSupported, f.cfg.Exchange,
			fmt.Sprintf("interval %s has no WS stream", f.cfg.Interval), nil)
	}
	f.mode = mode
	intervalSecs := f.store.IntervalSecs()

	switch mode {
	case ModeStreaming:
		f.streamer = strategy.NewStreamingStrategy(strategy.StreamingDeps{
			Adapter:      f.adapter,
			Transport:    f.tp,
			Store:        f.store,
			Breaker:      f.newBreaker("stream"),
			Metrics:      f.cfg.Metrics,
			Pair:         f.cfg.Pair,
			Interval:     f.cfg.Interval,
			IntervalSecs: intervalSecs,
			Labels:       f.labels,
		})
	default:
		f.polling = strategy.NewPollingStrategy(strategy.PollingDeps{
			Adapter:      f.adapter,
			Transport:    f.tp,
			Store:        f.store,
			Breaker:      f.newBreaker("poll"),
			Metrics:      f.cfg.Metrics,
			Pair:         f.cfg.Pair,
			Interval:     f.cfg.Interval,
			IntervalSecs: intervalSecs,
			Labels:       f.labels,
		})
	}
	f.started = true
	f.mu.Unlock()

	log.Info().Str("feed_id", f.id).Str("exchange", f.cfg.Exchange).Str("pair", f.cfg.Pair).
		Str("interval", f.cfg.Interval).Str("mode", string(mode)).Msg("feed starting")

	if mode == ModeStreaming {
		return f.streamer.Start(ctx)
	}
	return f.polling.Start(ctx)
}

// Stop halts collection and waits for a bounded, graceful shutdown.
// Idempotent; safe on a feed that was never started.
func (f *Feed) Stop() error {
	f.mu.Lock()
	mode := f.mode
	polling := f.polling
	streamer := f.streamer
	started := f.started
	f.started = false
	f.mu.Unlock()

	if !started {
		return nil
	}
	if mode == ModeStreaming && streamer != nil {
		return streamer.Stop()
	}
	if polling != nil {
		return polling.Stop()
	}
	return nil
}

// Fetch performs a one-shot REST pull, independent of the running
// strategy (or usable with no strategy running at all), and merges the
// sanitized result into the feed's store before returning it — so a
// caller can use Fetch to populate an idle feed or patch a known gap.
// limit defaults to 500 when zero.
func (f *Feed) Fetch(ctx context.Context, startTime, endTime *int64, limit int) ([]candle.Candle, error) {
	if limit <= 0 {
		limit = 500
	}
	transient := strategy.NewPollingStrategy(strategy.PollingDeps{
		Adapter:      f.adapter,
		Transport:    f.tp,
		Store:        f.store,
		Breaker:      f.newBreaker("fetch"),
		Metrics:      f.cfg.Metrics,
		Pair:         f.cfg.Pair,
		Interval:     f.cfg.Interval,
		IntervalSecs: f.store.IntervalSecs(),
		Labels:       f.labels,
	})
	candles, err := transient.PollOnce(ctx, startTime, endTime, &limit)
	if err != nil {
		return nil, err
	}

	for _, c := range candles {
		f.store.Merge(c)
		if f.cfg.Metrics != nil {
			f.cfg.Metrics.MergesTotal.WithLabelValues(f.cfg.Exchange, f.cfg.Pair, f.cfg.Interval).Inc()
		}
	}
	return candles, nil
}

// Snapshot returns a copy of the feed's current candles, oldest first.
func (f *Feed) Snapshot() []candle.Candle { return f.store.Snapshot() }

// Add merges a candle directly into the feed's store, bypassing any
// strategy. Intended for tests and for hosts that source candles through
// their own pipeline but still want the store's ordering/dedup guarantees.
func (f *Feed) Add(c candle.Candle) { f.store.Merge(c) }

// Ready reports whether the store is sufficiently full and gap-free.
func (f *Feed) Ready() bool { return f.store.Ready() }

// FirstOpenTime returns the oldest candle's open time, or (0, false) when empty.
func (f *Feed) FirstOpenTime() (int64, bool) { return f.store.FirstOpenTime() }

// LastOpenTime returns the newest candle's open time, or (0, false) when empty.
func (f *Feed) LastOpenTime() (int64, bool) { return f.store.LastOpenTime() }

// Mode reports the strategy mode the feed resolved to at Start time (zero
// value "" before Start is called).
func (f *Feed) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}
