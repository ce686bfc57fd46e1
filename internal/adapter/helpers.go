package adapter

import (
	"context"

	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/transport"
)

// NoWebSocket is embedded by adapters that do not support streaming. It
// satisfies the WS half of the Adapter interface by failing explicitly
// rather than silently returning empty results.
type NoWebSocket struct {
	Venue string
}

func (n NoWebSocket) WSSupportedIntervals() map[string]struct{} { return map[string]struct{}{} }

func (n NoWebSocket) WSURL() (string, error) {
	return "", NewError(KindNotSupported, n.Venue, "streaming is not supported by this adapter", nil)
}

func (n NoWebSocket) WSSubscribePayload(pair, interval string) (transport.Frame, error) {
	return transport.Frame{}, NewError(KindNotSupported, n.Venue, "streaming is not supported by this adapter", nil)
}

func (n NoWebSocket) ParseWSMessage(frame transport.Frame) ([]candle.Candle, error) {
	return nil, NewError(KindNotSupported, n.Venue, "streaming is not supported by this adapter", nil)
}

// TestnetSupport is embedded by adapters that publish both production and
// testnet URLs per endpoint class. ProductionURLs/TestnetURLs are keyed by
// netconfig.EndpointClass; RestURL consults the adapter's netconfig.Config
// to pick between them.
type TestnetSupport struct {
	Venue          string
	Network        *netconfig.Config
	ProductionURLs map[netconfig.EndpointClass]string
	TestnetURLs    map[netconfig.EndpointClass]string
}

func (t TestnetSupport) RestURL(class netconfig.EndpointClass) (string, error) {
	if t.Network != nil && t.Network.IsTestnetFor(class) {
		url, ok := t.TestnetURLs[class]
		if !ok {
			return "", NewError(KindNotSupported, t.Venue, "no testnet URL for endpoint class "+string(class), nil)
		}
		return url, nil
	}
	url, ok := t.ProductionURLs[class]
	if !ok {
		return "", NewError(KindNotSupported, t.Venue, "no production URL for endpoint class "+string(class), nil)
	}
	return url, nil
}

// NoTestnet is embedded by adapters whose venue has no sandbox; RestURL
// always returns the production URL and raises NotSupported if the
// network config asks for testnet on the requested class.
type NoTestnet struct {
	Venue   string
	URLs    map[netconfig.EndpointClass]string
	Network *netconfig.Config
}

func (t NoTestnet) RestURL(class netconfig.EndpointClass) (string, error) {
	if t.Network != nil && t.Network.IsTestnetFor(class) {
		return "", NewError(KindNotSupported, t.Venue, "no testnet for endpoint class "+string(class), nil)
	}
	url, ok := t.URLs[class]
	if !ok {
		return "", NewError(KindNotSupported, t.Venue, "no URL for endpoint class "+string(class), nil)
	}
	return url, nil
}

// BlockingFetch is the shape a sync-only adapter (one wrapping a blocking
// client library) exposes instead of FetchRestCandles.
type BlockingFetch func(pair, interval string, startTime *int64, limit int) ([]candle.Candle, error)

// SyncCore bridges a sync-only adapter's BlockingFetch into the async
// FetchRestCandles contract by running it on a worker goroutine and
// respecting ctx cancellation, so a blocking client library doesn't force
// every adapter to be natively async.
type SyncCore struct {
	Fetch BlockingFetch
}

func (s SyncCore) FetchRestCandles(ctx context.Context, _ transport.Transport, pair, interval string, startTime *int64, limit int) ([]candle.Candle, error) {
	type result struct {
		candles []candle.Candle
		err     error
	}
	done := make(chan result, 1)
	go func() {
		candles, err := s.Fetch(pair, interval, startTime, limit)
		done <- result{candles, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.candles, r.err
	}
}
