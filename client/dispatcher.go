// Package client issues the gateway's HTTP calls: it attaches the bearer token
// (refreshing it through the refresh gate when needed), applies the minimum
// latency floor and hands back raw responses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/sessions"
	"github.com/jrsteele09/bgv-gateway/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultMinLatency            = 800 * time.Millisecond
	DefaultLargePayloadThreshold = 1 << 20
	DefaultRequestTimeout        = 30 * time.Second

	RequestIDHeader = "X-Request-ID"
)

// Refresher obtains a fresh access token, returning "" when there is no
// usable session.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

// PublicChecker reports whether the current route is a public candidate route.
type PublicChecker interface {
	IsPublic() bool
}

// Dispatcher sends requests to the BGV API.
type Dispatcher struct {
	baseURL        string
	store          *sessions.Store
	gate           Refresher
	location       PublicChecker
	httpClient     *http.Client
	cookieClient   *http.Client
	jar            http.CookieJar
	minLatency     time.Duration
	largePayload   int64
	requestTimeout time.Duration
	limiter        *rate.Limiter
}

type Option func(*Dispatcher)

// WithHTTPClient sets the client used for every request. Its Jar is ignored;
// use WithCookieJar for cookie requests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		d.httpClient = c
	}
}

func WithCookieJar(jar http.CookieJar) Option {
	return func(d *Dispatcher) {
		d.jar = jar
	}
}

// WithMinLatency sets the latency floor. Zero disables it.
func WithMinLatency(floor time.Duration) Option {
	return func(d *Dispatcher) {
		d.minLatency = floor
	}
}

// WithLargePayloadThreshold sets the body size from which the latency floor
// no longer applies.
func WithLargePayloadThreshold(n int64) Option {
	return func(d *Dispatcher) {
		d.largePayload = n
	}
}

// WithRequestTimeout sets the timeout for requests that do not set their own.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.requestTimeout = timeout
	}
}

// WithRateLimit caps outbound requests at rps per second. rps <= 0 disables
// the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(d *Dispatcher) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// New returns a dispatcher for the API rooted at baseURL. gate and location
// may be nil, in which case expired tokens are never refreshed and no route
// is public.
func New(baseURL string, store *sessions.Store, gate Refresher, location PublicChecker, options ...Option) (*Dispatcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API base URL %q must be absolute: %w", baseURL, gwerrors.ErrInvalidRequest)
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required: %w", gwerrors.ErrInvalidRequest)
	}

	d := &Dispatcher{
		baseURL:        strings.TrimRight(baseURL, "/"),
		store:          store,
		gate:           gate,
		location:       location,
		httpClient:     &http.Client{},
		minLatency:     DefaultMinLatency,
		largePayload:   DefaultLargePayloadThreshold,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range options {
		opt(d)
	}
	if d.jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		d.jar = jar
	}

	plain := *d.httpClient
	plain.Jar = nil
	d.httpClient = &plain

	withCookies := plain
	withCookies.Jar = d.jar
	d.cookieClient = &withCookies
	return d, nil
}

// Jar returns the jar cookie requests use.
func (d *Dispatcher) Jar() http.CookieJar {
	return d.jar
}

// BaseURL returns the API root requests are resolved against.
func (d *Dispatcher) BaseURL() string {
	return d.baseURL
}

// AuthenticatedRequest sends body to url with the current bearer token,
// refreshing it first when it is missing or about to expire. It returns
// ErrSessionExpired, without touching the network, when no token can be had.
func (d *Dispatcher) AuthenticatedRequest(ctx context.Context, body any, url, method string, options ...RequestOption) (*Response, error) {
	cfg := NewRequest(method, url).WithBody(body).WithAuth(AuthBearer)
	for _, opt := range options {
		cfg = opt(cfg)
	}
	return d.Do(ctx, cfg)
}

// UnauthenticatedRequest sends body to url without any credentials. An
// Authorization header passed through options is dropped.
func (d *Dispatcher) UnauthenticatedRequest(ctx context.Context, body any, url, method string, options ...RequestOption) (*Response, error) {
	cfg := NewRequest(method, url).WithBody(body)
	for _, opt := range options {
		cfg = opt(cfg)
	}
	return d.Do(ctx, cfg.WithAuth(AuthNone))
}

// CookieRequest sends cfg with the cookie jar attached and no bearer token.
func (d *Dispatcher) CookieRequest(ctx context.Context, cfg RequestConfig) (*Response, error) {
	return d.Do(ctx, cfg.WithAuth(AuthCookie))
}

// BearerToken returns a usable access token, refreshing through the gate
// when the held one is missing or expiring.
func (d *Dispatcher) BearerToken(ctx context.Context) (string, error) {
	raw := d.store.AccessToken()
	held := raw != ""
	public := d.location != nil && d.location.IsPublic()
	if (raw == "" || token.IsExpired(raw)) && !public && d.gate != nil {
		var err error
		raw, err = d.gate.Refresh(ctx)
		if err != nil {
			return "", err
		}
	}
	if raw == "" {
		if held {
			return "", fmt.Errorf("%w: %w", gwerrors.ErrSessionExpired, gwerrors.ErrTokenExpired)
		}
		return "", gwerrors.ErrSessionExpired
	}
	return raw, nil
}

// Do sends cfg. Transport failures are returned as errors, every answer from
// the backend is returned as a Response.
func (d *Dispatcher) Do(ctx context.Context, cfg RequestConfig) (*Response, error) {
	start := time.Now()
	cfg = cfg.clone()

	var bearer string
	if cfg.AuthType == AuthBearer {
		var err error
		if bearer, err = d.BearerToken(ctx); err != nil {
			return nil, err
		}
	}

	body, size, contentType, err := encodeBody(cfg.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", cfg.Method, cfg.URL, err)
	}
	if body != nil && cfg.OnUploadProgress != nil {
		body = &progressReader{r: body, total: size, fn: cfg.OnUploadProgress}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = d.requestTimeout
	}
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, cfg.Method, d.resolve(cfg.URL), body)
	if err != nil {
		return nil, fmt.Errorf("creating request %s %s: %w", cfg.Method, cfg.URL, err)
	}
	if size >= 0 {
		req.ContentLength = size
	}
	if len(cfg.Params) > 0 {
		q := req.URL.Query()
		for k, v := range cfg.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cfg.ResponseType == ResponseJSON && req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
		req.Header.Set(RequestIDHeader, requestID)
	}

	req.Header.Del("Authorization")
	httpClient := d.httpClient
	switch cfg.AuthType {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+bearer)
	case AuthCookie:
		httpClient = d.cookieClient
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(reqCtx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	httpResp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error invoking API %s %s: %w", cfg.Method, cfg.URL, err)
	}
	defer httpResp.Body.Close()
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body %s %s: %w", cfg.Method, cfg.URL, err)
	}
	resp := newResponse(httpResp, respBody, cfg.ResponseType)

	if d.floorApplies(cfg.ResponseType, size, int64(len(respBody))) {
		if err := waitUntil(ctx, start.Add(d.minLatency)); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Str("method", cfg.Method).
		Str("url", cfg.URL).
		Str("auth", cfg.AuthType.String()).
		Int("status", resp.Status).
		Dur("took", time.Since(start)).
		Str("requestId", requestID).
		Msg("Dispatched request")
	return resp, nil
}

func (d *Dispatcher) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return d.baseURL + "/" + strings.TrimLeft(path, "/")
}

// floorApplies reports whether the latency floor pads this exchange. Blob
// downloads, streamed uploads and large bodies in either direction are never
// padded.
func (d *Dispatcher) floorApplies(rt ResponseType, sent, received int64) bool {
	if d.minLatency <= 0 || rt != ResponseJSON || sent < 0 {
		return false
	}
	if d.largePayload > 0 && (sent >= d.largePayload || received >= d.largePayload) {
		return false
	}
	return true
}

func waitUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// encodeBody returns the body reader, its size (-1 if unknown) and the
// content type to send when the caller has not set one.
func encodeBody(body any) (io.Reader, int64, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, 0, "", nil
	case []byte:
		return bytes.NewReader(b), int64(len(b)), "application/octet-stream", nil
	case string:
		return strings.NewReader(b), int64(len(b)), "text/plain; charset=utf-8", nil
	case *bytes.Reader:
		return b, int64(b.Len()), "application/octet-stream", nil
	case io.Reader:
		return b, -1, "application/octet-stream", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, 0, "", fmt.Errorf("error marshaling request body: %w", err)
		}
		return bytes.NewReader(data), int64(len(data)), "application/json", nil
	}
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}
