// Package mockexchange is a fully in-memory adapter implementing the full
// Adapter contract, for exercising the strategies and Feed coordinator in
// tests without any network dependency. Grounded in the fixture-driven
// mocking_resources package from the original Python implementation,
// reworked as a registered adapter.Adapter rather than a test-only fixture.
package mockexchange

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/sawpanic/candlefeed/internal/adapter"
	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/registry"
	"github.com/sawpanic/candlefeed/internal/transport"
)

const venueName = "mockexchange"

func init() {
	registry.Register(venueName, func(network *netconfig.Config) (adapter.Adapter, error) {
		return New(), nil
	})
}

var supportedIntervals = map[string]int64{
	"1m": 60, "5m": 300, "1h": 3600, "1d": 86400,
}

// Adapter is a deterministic, seedable in-memory venue.
type Adapter struct {
	adapter.NoTestnet

	mu      sync.Mutex
	seeded  map[string][]candle.Candle // key: pair|interval
	wsFrame map[string][]byte          // next queued WS frame per pair|interval
}

// New builds an empty mock adapter; use Seed to preload candles for a
// pair/interval before a test drives FetchRestCandles against it.
func New() *Adapter {
	return &Adapter{
		NoTestnet: adapter.NoTestnet{
			Venue: venueName,
			URLs:  map[netconfig.EndpointClass]string{netconfig.EndpointCandles: "mock://candles"},
		},
		seeded:  map[string][]candle.Candle{},
		wsFrame: map[string][]byte{},
	}
}

func key(pair, interval string) string { return pair + "|" + interval }

// Seed installs the candle set FetchRestCandles/ParseRestResponse will
// serve for pair/interval, sorted ascending by OpenTime.
func (a *Adapter) Seed(pair, interval string, candles []candle.Candle) {
	sorted := make([]candle.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OpenTime < sorted[j].OpenTime })

	a.mu.Lock()
	defer a.mu.Unlock()
	a.seeded[key(pair, interval)] = sorted
}

// QueueWSCandle stores the JSON encoding of c as the queued frame for
// pair/interval, replacing any earlier one. ParseWSMessage does not read
// this queue: it decodes whatever frame it is handed.
func (a *Adapter) QueueWSCandle(pair, interval string, c candle.Candle) {
	data, _ := json.Marshal(c)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.wsFrame[key(pair, interval)] = data
}

func (a *Adapter) Name() string { return venueName }

func (a *Adapter) FormatPair(canonical string) (string, error) { return canonical, nil }

func (a *Adapter) SupportedIntervals() map[string]int64 { return supportedIntervals }

func (a *Adapter) WSSupportedIntervals() map[string]struct{} {
	return map[string]struct{}{"1m": {}, "5m": {}}
}

func (a *Adapter) TimestampUnit() adapter.TimestampUnit { return adapter.UnitSeconds }

func (a *Adapter) RestParams(pair, interval string, startTime *int64, limit int) (map[string]string, error) {
	if _, ok := supportedIntervals[interval]; !ok {
		return nil, adapter.NewError(adapter.KindUnsupportedInterval, venueName, "unsupported interval "+interval, nil)
	}
	params := map[string]string{"pair": pair, "interval": interval}
	if startTime != nil {
		params["start"] = adapter.FormatTimestamp(a.TimestampUnit(), *startTime)
	}
	return params, nil
}

// ParseRestResponse is unused directly: the mock bypasses the wire format
// and answers from its seeded set inside FetchRestCandles. It is still
// implemented to satisfy the Adapter contract and to let tests exercise
// the parse path against a hand-built JSON array.
func (a *Adapter) ParseRestResponse(body []byte) ([]candle.Candle, error) {
	var candles []candle.Candle
	if err := json.Unmarshal(body, &candles); err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "invalid mock candle JSON", err)
	}
	return candles, nil
}

// FetchRestCandles serves from the seeded set, applying startTime/limit
// filtering the same way a real REST endpoint would.
func (a *Adapter) FetchRestCandles(ctx context.Context, t transport.Transport, pair, interval string, startTime *int64, limit int) ([]candle.Candle, error) {
	if _, ok := supportedIntervals[interval]; !ok {
		return nil, adapter.NewError(adapter.KindUnsupportedInterval, venueName, "unsupported interval "+interval, nil)
	}

	a.mu.Lock()
	all := a.seeded[key(pair, interval)]
	a.mu.Unlock()

	out := make([]candle.Candle, 0, len(all))
	for _, c := range all {
		if startTime != nil && c.OpenTime < *startTime {
			continue
		}
		out = append(out, c)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *Adapter) WSURL() (string, error) { return "mock://ws", nil }

func (a *Adapter) WSSubscribePayload(pair, interval string) (transport.Frame, error) {
	if _, ok := a.WSSupportedIntervals()[interval]; !ok {
		return transport.Frame{}, adapter.NewError(adapter.KindNotSupported, venueName, "interval "+interval+" has no WS stream", nil)
	}
	payload, _ := json.Marshal(map[string]string{"pair": pair, "interval": interval})
	return transport.Frame{Data: payload, IsText: true}, nil
}

// ParseWSMessage decodes a frame holding a single candle JSON object (the
// encoding QueueWSCandle stores), such as one a test's mock session sends.
func (a *Adapter) ParseWSMessage(frame transport.Frame) ([]candle.Candle, error) {
	var c candle.Candle
	if err := json.Unmarshal(frame.Data, &c); err != nil {
		return nil, nil // non-candle control frame, ignored
	}
	return []candle.Candle{c}, nil
}
