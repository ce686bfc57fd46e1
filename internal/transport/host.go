package transport

import "context"

// hostTransport adapts a host-provided HostBundle to the Transport
// interface, so every strategy's code path is identical whether it is
// talking to the built-in transport or a larger trading framework's.
type hostTransport struct {
	bundle *HostBundle
}

func (h *hostTransport) HTTPGet(ctx context.Context, url string, params map[string]string, headers map[string]string) (*Response, error) {
	if h.bundle.Limiter != nil {
		release, err := h.bundle.Limiter.Execute(ctx, "http:"+url)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	return h.bundle.HTTPGet(ctx, url, params, headers)
}

func (h *hostTransport) WSConnect(ctx context.Context, url string) (Session, error) {
	if h.bundle.Limiter != nil {
		release, err := h.bundle.Limiter.Execute(ctx, "ws:"+url)
		if err != nil {
			return nil, err
		}
		defer release()
	}
	return h.bundle.SessionFactory(ctx, url)
}

// Close is a no-op: the host framework owns the bundle's lifecycle.
func (h *hostTransport) Close() error { return nil }
