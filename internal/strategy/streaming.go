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

// reconnectBackoff is the capped exponential schedule used between
// reconnect attempts: 1,2,4,8,16,30s, holding at the cap thereafter. This
// diverges deliberately from the original source's fixed 1s retry: a dead
// venue connection no longer gets hammered once a few attempts in a row
// fail.
var reconnectBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	30 * time.Second,
}

func backoffFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(reconnectBackoff) {
		attempt = len(reconnectBackoff) - 1
	}
	return reconnectBackoff[attempt]
}

// StreamingDeps bundles a StreamingStrategy's collaborators.
type StreamingDeps struct {
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

// StreamingStrategy is the WebSocket collection strategy:
// idle -> prefilling -> connecting -> subscribed -> reconnecting ->
// stopping -> stopped, with REST-backed prefill and gap repair.
type StreamingStrategy struct {
	deps StreamingDeps

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewStreamingStrategy constructs an idle streaming strategy.
func NewStreamingStrategy(deps StreamingDeps) *StreamingStrategy {
	return &StreamingStrategy{deps: deps, state: StateIdle}
}

// State returns the strategy's current lifecycle state.
func (s *StreamingStrategy) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start launches the streaming loop in a background goroutine. Idempotent.
func (s *StreamingStrategy) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.state = StatePrefilling
	stopped := s.stopped
	s.mu.Unlock()

	go s.run(runCtx, stopped)
	return nil
}

// Stop cancels the streaming loop and waits up to ShutdownBound for it to
// exit cleanly. Idempotent.
func (s *StreamingStrategy) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	stopped := s.stopped
	s.state = StateStopping
	s.mu.Unlock()

	cancel()
	select {
	case <-stopped:
	case <-time.After(ShutdownBound):
		log.Warn().Str("exchange", s.deps.Labels.Exchange).Str("pair", s.deps.Labels.Pair).
			Msg("streaming strategy shutdown exceeded bound")
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	return nil
}

func (s *StreamingStrategy) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *StreamingStrategy) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	s.prefill(ctx)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		s.setState(StateConnecting)
		var session transport.Session
		var err error
		if s.deps.Breaker != nil {
			var res any
			res, err = s.deps.Breaker.Execute(func() (any, error) { return s.connect(ctx) })
			if err == nil {
				session = res.(transport.Session)
			}
		} else {
			session, err = s.connect(ctx)
		}
		if err != nil {
			log.Warn().Err(err).Str("exchange", s.deps.Labels.Exchange).Str("pair", s.deps.Labels.Pair).
				Msg("streaming strategy connect failed")
			observeReconnect(s.deps.Metrics, s.deps.Labels)
			if !s.wait(ctx, backoffFor(attempt)) {
				return
			}
			attempt++
			continue
		}

		s.setState(StateSubscribed)
		attempt = 0
		disconnected := s.consume(ctx, session)
		session.Close()
		if !disconnected {
			return // ctx cancelled, not a reconnect-worthy disconnect
		}

		s.setState(StateReconnecting)
		observeReconnect(s.deps.Metrics, s.deps.Labels)
		if !s.wait(ctx, backoffFor(attempt)) {
			return
		}
		attempt++
	}
}

// wait blocks for d or until ctx is done, returning false in the latter
// case so the caller can exit its loop instead of looping once more.
func (s *StreamingStrategy) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// prefill performs an initial REST backfill when the store is empty, since
// a streaming strategy still needs a REST-sourced seed before the first WS
// message arrives.
func (s *StreamingStrategy) prefill(ctx context.Context) {
	if s.deps.Store.Len() > 0 {
		return
	}

	end := nowAligned(s.deps.IntervalSecs)
	limit := s.deps.Store.Capacity()
	start := end - s.deps.IntervalSecs*int64(limit)

	fetch := func() (any, error) {
		return s.deps.Adapter.FetchRestCandles(ctx, s.deps.Transport, s.deps.Pair, s.deps.Interval, &start, limit)
	}

	var candles any
	var err error
	if s.deps.Breaker != nil {
		candles, err = s.deps.Breaker.Execute(fetch)
	} else {
		candles, err = fetch()
	}
	if err != nil {
		log.Warn().Err(err).Str("exchange", s.deps.Labels.Exchange).Str("pair", s.deps.Labels.Pair).
			Msg("streaming strategy prefill failed, proceeding without seed")
		return
	}

	sanitized := processor.Sanitize(candles.([]candle.Candle), s.deps.IntervalSecs)
	for _, c := range sanitized {
		s.deps.Store.Merge(c)
		observeMerge(s.deps.Metrics, s.deps.Labels)
	}
}

func (s *StreamingStrategy) connect(ctx context.Context) (transport.Session, error) {
	url, err := s.deps.Adapter.WSURL()
	if err != nil {
		return nil, err
	}
	session, err := s.deps.Transport.WSConnect(ctx, url)
	if err != nil {
		return nil, err
	}
	payload, err := s.deps.Adapter.WSSubscribePayload(s.deps.Pair, s.deps.Interval)
	if err != nil {
		session.Close()
		return nil, err
	}
	if err := session.Send(ctx, payload); err != nil {
		session.Close()
		return nil, err
	}
	return session, nil
}

// consume reads frames until the session's channel closes or ctx is
// cancelled. Returns true when the session ended (reconnect-worthy),
// false when ctx cancellation caused the exit.
func (s *StreamingStrategy) consume(ctx context.Context, session transport.Session) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case frame, ok := <-session.Messages():
			if !ok {
				if err := session.Err(); err != nil {
					log.Warn().Err(err).Str("exchange", s.deps.Labels.Exchange).
						Str("pair", s.deps.Labels.Pair).Msg("streaming strategy session ended")
				}
				return true
			}
			s.handleFrame(ctx, frame)
		}
	}
}

func (s *StreamingStrategy) handleFrame(ctx context.Context, frame transport.Frame) {
	candles, err := s.deps.Adapter.ParseWSMessage(frame)
	if err != nil {
		log.Debug().Err(err).Str("exchange", s.deps.Labels.Exchange).Str("pair", s.deps.Labels.Pair).
			Msg("streaming strategy failed to parse frame")
		observeParseError(s.deps.Metrics, s.deps.Labels, "ws")
		return
	}
	if len(candles) == 0 {
		return
	}

	sanitized := processor.Sanitize(candles, s.deps.IntervalSecs)
	for _, c := range sanitized {
		s.checkGap(c)
		s.deps.Store.Merge(c)
		observeMerge(s.deps.Metrics, s.deps.Labels)
	}
}

// checkGap detects a hole between the store's last candle and an incoming
// one that is more than one interval ahead, and backfills it over REST.
// Best-effort: a failed backfill is logged and the incoming candle is
// still merged by the caller.
func (s *StreamingStrategy) checkGap(incoming candle.Candle) {
	last, ok := s.deps.Store.LastOpenTime()
	if !ok {
		return
	}
	gap := incoming.OpenTime - last
	if gap <= s.deps.IntervalSecs {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownBound)
	defer cancel()

	start := last + s.deps.IntervalSecs
	limit := int((gap / s.deps.IntervalSecs))
	fetch := func() (any, error) {
		return s.deps.Adapter.FetchRestCandles(ctx, s.deps.Transport, s.deps.Pair, s.deps.Interval, &start, limit)
	}

	var res any
	var err error
	if s.deps.Breaker != nil {
		res, err = s.deps.Breaker.Execute(fetch)
	} else {
		res, err = fetch()
	}
	if err != nil {
		log.Warn().Err(err).Str("exchange", s.deps.Labels.Exchange).Str("pair", s.deps.Labels.Pair).
			Int64("gap_seconds", gap).Msg("streaming strategy gap backfill failed")
		return
	}

	sanitized := processor.Sanitize(res.([]candle.Candle), s.deps.IntervalSecs)
	for _, c := range sanitized {
		s.deps.Store.Merge(c)
		observeMerge(s.deps.Metrics, s.deps.Labels)
	}
}
