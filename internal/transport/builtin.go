package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// HostConfig tunes the built-in transport's timeouts and per-host caps.
// Zero values fall back to conservative defaults.
type HostConfig struct {
	// TotalTimeout bounds one HTTP request end-to-end. Default 10s.
	TotalTimeout time.Duration
	// ConnectTimeout bounds dialing. Default min(TotalTimeout/2, 5s).
	ConnectTimeout time.Duration
	// WSHandshakeTimeout bounds WebSocket connection establishment. Default 10s.
	WSHandshakeTimeout time.Duration
	// MaxConnsPerHost caps outstanding connections to any one venue so a
	// single slow venue cannot starve the shared pool. Default 8.
	MaxConnsPerHost int
	// RequestsPerSecond, when > 0, applies a per-host token bucket cap on
	// top of the connection pool. The built-in transport does not
	// rate-limit beyond the pool cap by default; operators embedding the
	// core standalone may opt in here.
	RequestsPerSecond float64
	RequestsBurst     int
}

func (c *HostConfig) withDefaults() HostConfig {
	out := HostConfig{}
	if c != nil {
		out = *c
	}
	if out.TotalTimeout == 0 {
		out.TotalTimeout = 10 * time.Second
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = out.TotalTimeout / 2
		if out.ConnectTimeout > 5*time.Second {
			out.ConnectTimeout = 5 * time.Second
		}
	}
	if out.WSHandshakeTimeout == 0 {
		out.WSHandshakeTimeout = 10 * time.Second
	}
	if out.MaxConnsPerHost == 0 {
		out.MaxConnsPerHost = 8
	}
	return out
}

// Builtin is the default Transport: a pooled net/http client plus a
// gorilla/websocket dialer. It is safe for concurrent use by multiple
// feeds; the connection pool and per-host limiters are shared.
type Builtin struct {
	cfg      HostConfig
	client   *http.Client
	dialer   *websocket.Dialer
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewBuiltin constructs the default transport from the given (optionally
// nil) configuration.
func NewBuiltin(cfg *HostConfig) *Builtin {
	resolved := cfg.withDefaults()

	dialContext := (&net.Dialer{Timeout: resolved.ConnectTimeout}).DialContext

	transport := &http.Transport{
		DialContext:         dialContext,
		MaxConnsPerHost:     resolved.MaxConnsPerHost,
		MaxIdleConnsPerHost: resolved.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Builtin{
		cfg:    resolved,
		client: &http.Client{Transport: transport, Timeout: resolved.TotalTimeout},
		dialer: &websocket.Dialer{
			HandshakeTimeout: resolved.WSHandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
		},
		limiters: make(map[string]*rate.Limiter),
	}
}

func (b *Builtin) limiterFor(host string) *rate.Limiter {
	if b.cfg.RequestsPerSecond <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[host]
	if !ok {
		burst := b.cfg.RequestsBurst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(b.cfg.RequestsPerSecond), burst)
		b.limiters[host] = l
	}
	return l
}

// HTTPGet executes a GET request, reusing the shared connection pool. A
// response status >= 400 is bubbled up as an *adapter.Error-shaped
// TransportError via the caller's wrapping (see each adapter's
// FetchRestCandles); here we
// just report status and body so the caller can classify it.
func (b *Builtin) HTTPGet(ctx context.Context, rawURL string, params map[string]string, headers map[string]string) (*Response, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid url %q: %w", rawURL, err)
	}

	if limiter := b.limiterFor(parsed.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("transport: rate limiter wait: %w", err)
		}
	}

	q := parsed.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request to %s failed: %w", parsed.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: read body from %s: %w", parsed.Host, err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body, Header: resp.Header}, nil
}

// WSConnect opens a WebSocket session to url and returns a Session whose
// Messages channel is fed by a background reader goroutine.
func (b *Builtin) WSConnect(ctx context.Context, rawURL string) (Session, error) {
	conn, _, err := b.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: ws dial %s: %w", rawURL, err)
	}
	return newWSSession(conn), nil
}

// Close releases pooled sockets. Call once the transport is no longer
// needed by any feed.
func (b *Builtin) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

type wsSession struct {
	conn     *websocket.Conn
	messages chan Frame
	done     chan struct{}
	mu       sync.Mutex
	err      error
	closed   bool
}

func newWSSession(conn *websocket.Conn) *wsSession {
	s := &wsSession{
		conn:     conn,
		messages: make(chan Frame, 32),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *wsSession) readLoop() {
	defer close(s.messages)
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if !s.closed {
				s.err = err
			}
			s.mu.Unlock()
			log.Debug().Err(err).Msg("transport: ws read loop terminating")
			return
		}
		frame := Frame{Data: data, IsText: msgType == websocket.TextMessage, IsBinary: msgType == websocket.BinaryMessage}
		select {
		case s.messages <- frame:
		case <-s.done:
			return
		}
	}
}

func (s *wsSession) Send(ctx context.Context, frame Frame) error {
	msgType := websocket.TextMessage
	if frame.IsBinary {
		msgType = websocket.BinaryMessage
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	}
	return s.conn.WriteMessage(msgType, frame.Data)
}

func (s *wsSession) Messages() <-chan Frame { return s.messages }

func (s *wsSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *wsSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.done)
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
