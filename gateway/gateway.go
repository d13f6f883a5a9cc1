// Package gateway assembles the session store, refresh gate, request
// dispatcher, auth service and bootstrap sequencer from configuration.
package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/jrsteele09/bgv-gateway/auth"
	"github.com/jrsteele09/bgv-gateway/bootstrap"
	"github.com/jrsteele09/bgv-gateway/client"
	"github.com/jrsteele09/bgv-gateway/internal/config"
	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
	"github.com/jrsteele09/bgv-gateway/navigation"
	"github.com/jrsteele09/bgv-gateway/sessions"
	"github.com/jrsteele09/bgv-gateway/token/refresh"
	"github.com/rs/zerolog/log"
)

// Gateway is one client session against the BGV backend.
type Gateway struct {
	Store      *sessions.Store
	Location   *navigation.Location
	Gate       *refresh.Gate
	Dispatcher *client.Dispatcher
	Auth       *auth.Service
	Sequencer  *bootstrap.Sequencer
}

type options struct {
	jar        http.CookieJar
	httpClient *http.Client
	baseURL    string
}

type Option func(*options)

// WithCookieJar sets the jar holding the refresh cookie, e.g. a
// client.PersistentJar.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) {
		o.jar = jar
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// New builds a gateway whose current route is path.
func New(cfg config.Config, path string, opts ...Option) (*Gateway, error) {
	o := options{baseURL: cfg.GetAPIBaseURL()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkTransport(o.baseURL, cfg.GetAllowInsecure()); err != nil {
		return nil, err
	}

	g := &Gateway{
		Store:    sessions.NewStore(),
		Location: navigation.NewLocation(path, cfg.GetPublicPaths()...),
	}
	g.Gate = refresh.NewGate(g.Store, g.refresh, g.Location,
		refresh.WithPolicy(refresh.ParsePolicy(cfg.GetRefreshPolicy())),
		refresh.WithTimeout(cfg.GetRequestTimeout()))

	dispatcherOpts := []client.Option{
		client.WithMinLatency(cfg.GetMinLatency()),
		client.WithLargePayloadThreshold(cfg.GetLargePayloadThreshold()),
		client.WithRequestTimeout(cfg.GetRequestTimeout()),
		client.WithRateLimit(cfg.GetRateLimit(), cfg.GetRateBurst()),
	}
	if o.jar != nil {
		dispatcherOpts = append(dispatcherOpts, client.WithCookieJar(o.jar))
	}
	if o.httpClient != nil {
		dispatcherOpts = append(dispatcherOpts, client.WithHTTPClient(o.httpClient))
	}

	var err error
	g.Dispatcher, err = client.New(o.baseURL, g.Store, g.Gate, g.Location, dispatcherOpts...)
	if err != nil {
		return nil, fmt.Errorf("gateway.New: %w", err)
	}
	g.Auth, err = auth.NewService(g.Dispatcher, g.Store)
	if err != nil {
		return nil, fmt.Errorf("gateway.New: %w", err)
	}
	g.Sequencer = bootstrap.New(g.Store, g.Gate, g.Location)

	log.Debug().
		Str("api", o.baseURL).
		Str("path", path).
		Str("refreshPolicy", cfg.GetRefreshPolicy()).
		Dur("minLatency", cfg.GetMinLatency()).
		Msg("Gateway configured")
	return g, nil
}

// Start runs the bootstrap sequence.
func (g *Gateway) Start(ctx context.Context) error {
	return g.Sequencer.Run(ctx)
}

func (g *Gateway) refresh(ctx context.Context) (*refresh.Result, error) {
	return g.Auth.Refresh(ctx)
}

// checkTransport refuses plain http to anything but a loopback host unless
// insecure transport is allowed.
func checkTransport(baseURL string, allowInsecure bool) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parsing API base URL: %w", err)
	}
	if u.Scheme != "http" || allowInsecure {
		return nil
	}
	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("refusing plain http to %s, set BGV_ALLOW_INSECURE to override: %w", host, gwerrors.ErrInvalidRequest)
}
