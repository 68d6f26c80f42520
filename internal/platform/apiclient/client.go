// Package apiclient is the HTTP transport between the console and the
// referral backend. List responses carry {current, pages, total} pagination
// metadata next to the item array.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 15 * time.Second
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 8 << 20
)

// Options configures a Client. Zero values select defaults; a RateLimit of
// zero disables client-side throttling.
type Options struct {
	Timeout    time.Duration
	Token      string
	RateLimit  float64 // requests per second
	Burst      int
	Logger     zerolog.Logger
	HTTPClient *http.Client
}

// Client talks JSON to the backend REST API.
type Client struct {
	base    *url.URL
	http    *http.Client
	token   string
	limiter *rate.Limiter
	flights *inflight
	logger  zerolog.Logger
}

// inflight tracks shared GETs. A shared request is cancelled once its last
// waiter leaves.
type inflight struct {
	group singleflight.Group
	mu    sync.Mutex
	calls map[string]*flight
}

type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func newInflight() *inflight {
	return &inflight{calls: make(map[string]*flight)}
}

func (g *inflight) join(ctx context.Context, key string) *flight {
	g.mu.Lock()
	defer g.mu.Unlock()
	f, ok := g.calls[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		g.calls[key] = f
	}
	f.waiters++
	return f
}

func (g *inflight) leave(key string, f *flight, abandoned bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if g.calls[key] == f {
		delete(g.calls, key)
	}
	if abandoned {
		g.group.Forget(key)
	}
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", baseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		base:    u,
		http:    hc,
		token:   opts.Token,
		limiter: limiter,
		flights: newInflight(),
		logger:  opts.Logger,
	}, nil
}

// WithToken returns a client that authenticates as token. It shares the
// connection pool and rate limiter but not in-flight request sharing.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	clone.flights = newInflight()
	return &clone
}

// BaseURL returns the backend root the client was created with.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// get performs a GET. Identical GETs in flight at the same time share one
// round trip. A caller whose ctx ends stops waiting without affecting the
// others; when no caller is left the request itself is aborted.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.resolve(path, query)
	f := c.flights.join(ctx, target)
	ch := c.flights.group.DoChan(target, func() (interface{}, error) {
		return c.do(f.ctx, http.MethodGet, target, nil)
	})
	select {
	case res := <-ch:
		c.flights.leave(target, f, false)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		c.flights.leave(target, f, true)
		return nil, &TransportError{Method: http.MethodGet, URL: target, Err: ctx.Err()}
	}
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	return c.do(ctx, method, c.resolve(path, nil), body)
}

func (c *Client) do(ctx context.Context, method, target string, body interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	rid := requestID(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, rid)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("request_id", rid).Str("method", method).Str("url", target).Msg("backend request failed")
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.Debug().
		Str("request_id", rid).
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend request")
	if err != nil {
		return nil, &TransportError{Method: method, URL: target, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Message:    backendMessage(data),
		}
	}
	return data, nil
}

type requestIDKey struct{}

// ContextWithRequestID makes outgoing requests reuse id instead of a fresh
// one, so a gateway request and its backend calls share an id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}
