// Package binance implements the Binance spot venue adapter: REST klines
// and the combined-stream WebSocket kline feed. Grounded in
// crypto-candles' binance klines parsing (array-of-arrays decoding) and
// cryptorun's internal/data/venue/binance REST client style.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sawpanic/candlefeed/internal/adapter"
	"github.com/sawpanic/candlefeed/internal/candle"
	"github.com/sawpanic/candlefeed/internal/netconfig"
	"github.com/sawpanic/candlefeed/internal/registry"
	"github.com/sawpanic/candlefeed/internal/transport"
)

const venueName = "binance"

func init() {
	registry.Register(venueName, func(network *netconfig.Config) (adapter.Adapter, error) {
		return New(network), nil
	})
}

var supportedIntervals = map[string]int64{
	"1m": 60, "3m": 180, "5m": 300, "15m": 900, "30m": 1800,
	"1h": 3600, "2h": 7200, "4h": 14400, "6h": 21600, "8h": 28800, "12h": 43200,
	"1d": 86400, "3d": 259200, "1w": 604800, "1M": 2592000,
}

// Adapter implements adapter.Adapter for Binance spot.
type Adapter struct {
	adapter.TestnetSupport
}

// New builds a Binance adapter routed per network.
func New(network *netconfig.Config) *Adapter {
	return &Adapter{
		TestnetSupport: adapter.TestnetSupport{
			Venue:   venueName,
			Network: network,
			ProductionURLs: map[netconfig.EndpointClass]string{
				netconfig.EndpointCandles: "https://api.binance.com/api/v3/klines",
			},
			TestnetURLs: map[netconfig.EndpointClass]string{
				netconfig.EndpointCandles: "https://testnet.binance.vision/api/v3/klines",
			},
		},
	}
}

func (a *Adapter) Name() string { return venueName }

// FormatPair converts "BTC-USDT" into Binance's concatenated "BTCUSDT".
func (a *Adapter) FormatPair(canonical string) (string, error) {
	parts := strings.SplitN(canonical, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", adapter.NewError(adapter.KindInvalidPair, venueName, "pair must be BASE-QUOTE, got "+canonical, nil)
	}
	return strings.ToUpper(parts[0]) + strings.ToUpper(parts[1]), nil
}

func (a *Adapter) SupportedIntervals() map[string]int64 { return supportedIntervals }

// WSSupportedIntervals: Binance streams klines at every REST interval.
func (a *Adapter) WSSupportedIntervals() map[string]struct{} {
	out := make(map[string]struct{}, len(supportedIntervals))
	for k := range supportedIntervals {
		out[k] = struct{}{}
	}
	return out
}

func (a *Adapter) TimestampUnit() adapter.TimestampUnit { return adapter.UnitMilliseconds }

// RestParams shapes symbol/interval/startTime/limit per the klines endpoint.
func (a *Adapter) RestParams(pair, interval string, startTime *int64, limit int) (map[string]string, error) {
	symbol, err := a.FormatPair(pair)
	if err != nil {
		return nil, err
	}
	if _, ok := supportedIntervals[interval]; !ok {
		return nil, adapter.NewError(adapter.KindUnsupportedInterval, venueName, "unsupported interval "+interval, nil)
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	params := map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}
	if startTime != nil {
		params["startTime"] = adapter.FormatTimestamp(a.TimestampUnit(), *startTime)
	}
	return params, nil
}

// ParseRestResponse decodes Binance's array-of-arrays kline response, per
// crypto-candles' successfulResponse.toCandlesticks.
func (a *Adapter) ParseRestResponse(body []byte) ([]candle.Candle, error) {
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		var errResp struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if jerr := json.Unmarshal(body, &errResp); jerr == nil && errResp.Code != 0 {
			return nil, adapter.NewError(adapter.KindTransport, venueName,
				fmt.Sprintf("binance error %d: %s", errResp.Code, errResp.Msg), err)
		}
		return nil, adapter.NewError(adapter.KindParse, venueName, "invalid klines JSON", err)
	}

	candles := make([]candle.Candle, 0, len(raw))
	for i, entry := range raw {
		c, err := parseRow(entry)
		if err != nil {
			return nil, adapter.NewError(adapter.KindParse, venueName, fmt.Sprintf("row %d: %s", i, err), err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseRow(row []interface{}) (candle.Candle, error) {
	if len(row) < 11 {
		return candle.Candle{}, fmt.Errorf("expected >=11 fields, got %d", len(row))
	}

	openMS, ok := toInt64(row[0])
	if !ok {
		return candle.Candle{}, fmt.Errorf("non-numeric open time")
	}
	open, err := toFloat(row[1])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("open: %w", err)
	}
	high, err := toFloat(row[2])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("high: %w", err)
	}
	low, err := toFloat(row[3])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("low: %w", err)
	}
	closeP, err := toFloat(row[4])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("close: %w", err)
	}
	volume, err := toFloat(row[5])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("volume: %w", err)
	}
	quoteVolume, err := toFloat(row[7])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("quote volume: %w", err)
	}
	nTrades, ok := toInt64(row[8])
	if !ok {
		return candle.Candle{}, fmt.Errorf("non-numeric trade count")
	}
	takerBase, err := toFloat(row[9])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("taker buy base: %w", err)
	}
	takerQuote, err := toFloat(row[10])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("taker buy quote: %w", err)
	}

	return candle.Candle{
		OpenTime:         openMS / 1000,
		Open:             open,
		High:             high,
		Low:              low,
		Close:            closeP,
		Volume:           volume,
		QuoteVolume:      quoteVolume,
		NTrades:          nTrades,
		TakerBuyBase:     takerBase,
		TakerBuyQuote:    takerQuote,
		HasQuoteVolume:   true,
		HasNTrades:       true,
		HasTakerBuyBase:  true,
		HasTakerBuyQuote: true,
	}, nil
}

func toInt64(v interface{}) (int64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v interface{}) (float64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("expected string, got %T", v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return f, nil
}

// FetchRestCandles orchestrates the REST call against the injected
// transport, classifying non-2xx responses as transport errors.
func (a *Adapter) FetchRestCandles(ctx context.Context, t transport.Transport, pair, interval string, startTime *int64, limit int) ([]candle.Candle, error) {
	url, err := a.RestURL(netconfig.EndpointCandles)
	if err != nil {
		return nil, err
	}
	params, err := a.RestParams(pair, interval, startTime, limit)
	if err != nil {
		return nil, err
	}

	resp, err := t.HTTPGet(ctx, url, params, nil)
	if err != nil {
		return nil, adapter.NewTransportError(venueName, err.Error(), 0, true, err)
	}
	if resp.StatusCode == 429 || resp.StatusCode >= 500 {
		return nil, adapter.NewTransportError(venueName, fmt.Sprintf("status %d", resp.StatusCode), resp.StatusCode, true, nil)
	}
	if resp.StatusCode >= 400 {
		return nil, adapter.NewTransportError(venueName, fmt.Sprintf("status %d", resp.StatusCode), resp.StatusCode, false, nil)
	}

	return a.ParseRestResponse(resp.Body)
}

// WSURL is the combined-stream endpoint; the subscription itself selects
// the symbol/interval pair.
func (a *Adapter) WSURL() (string, error) {
	return "wss://stream.binance.com:9443/stream", nil
}

// wsSubscribe mirrors Binance's SUBSCRIBE control frame shape.
type wsSubscribe struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// WSSubscribePayload builds the kline stream subscription frame for
// pair/interval, e.g. {"method":"SUBSCRIBE","params":["btcusdt@kline_1m"],"id":1}.
func (a *Adapter) WSSubscribePayload(pair, interval string) (transport.Frame, error) {
	symbol, err := a.FormatPair(pair)
	if err != nil {
		return transport.Frame{}, err
	}
	if _, ok := supportedIntervals[interval]; !ok {
		return transport.Frame{}, adapter.NewError(adapter.KindUnsupportedInterval, venueName, "unsupported interval "+interval, nil)
	}

	stream := strings.ToLower(symbol) + "@kline_" + interval
	payload, err := json.Marshal(wsSubscribe{Method: "SUBSCRIBE", Params: []string{stream}, ID: 1})
	if err != nil {
		return transport.Frame{}, adapter.NewError(adapter.KindParse, venueName, "failed to build subscribe frame", err)
	}
	return transport.Frame{Data: payload, IsText: true}, nil
}

type wsKlineEvent struct {
	Data struct {
		Kline struct {
			OpenTime    int64  `json:"t"`
			Open        string `json:"o"`
			High        string `json:"h"`
			Low         string `json:"l"`
			Close       string `json:"c"`
			Volume      string `json:"v"`
			QuoteVolume string `json:"q"`
			Trades      int64  `json:"n"`
			TakerBase   string `json:"V"`
			TakerQuote  string `json:"Q"`
		} `json:"k"`
	} `json:"data"`
}

// ParseWSMessage decodes a combined-stream kline event. Non-kline frames
// (subscription acks, pings) are ignored by returning (nil, nil).
func (a *Adapter) ParseWSMessage(frame transport.Frame) ([]candle.Candle, error) {
	var event wsKlineEvent
	if err := json.Unmarshal(frame.Data, &event); err != nil {
		return nil, nil
	}
	k := event.Data.Kline
	if k.OpenTime == 0 {
		return nil, nil
	}

	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws open", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws high", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws low", err)
	}
	closeP, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws close", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws volume", err)
	}
	quoteVolume, err := strconv.ParseFloat(k.QuoteVolume, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws quote volume", err)
	}
	takerBase, err := strconv.ParseFloat(k.TakerBase, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws taker base", err)
	}
	takerQuote, err := strconv.ParseFloat(k.TakerQuote, 64)
	if err != nil {
		return nil, adapter.NewError(adapter.KindParse, venueName, "ws taker quote", err)
	}

	return []candle.Candle{{
		OpenTime:         k.OpenTime / 1000,
		Open:             open,
		High:             high,
		Low:              low,
		Close:            closeP,
		Volume:           volume,
		QuoteVolume:      quoteVolume,
		NTrades:          k.Trades,
		TakerBuyBase:     takerBase,
		TakerBuyQuote:    takerQuote,
		HasQuoteVolume:   true,
		HasNTrades:       true,
		HasTakerBuyBase:  true,
		HasTakerBuyQuote: true,
	}}, nil
}
