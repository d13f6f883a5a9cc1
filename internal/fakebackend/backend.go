// Package fakebackend is an in-process stand-in for the BGV REST backend.
// It implements the authentication, profile, invitation and file endpoints
// the gateway consumes, and is used by tests and by `bgvctl fake-server`.
package fakebackend

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/rs/zerolog/log"
)

const (
	RouteVerifyCredentials   = "/auth/verify-credentials"
	RouteVerifyOTP           = "/auth/verify-otp"
	RouteResendOTP           = "/auth/resend-otp"
	RouteRefreshToken        = "/auth/refresh-token"
	RouteLogout              = "/auth/logout"
	RouteUserMe              = "/user/me"
	RouteVerifyInvite        = "/auth/verify-invite"
	RouteVerifyAddressInvite = "/auth/verify-address-invite"
	RouteFiles               = "/files/{fileId}"

	// RefreshCookieName is the httpOnly cookie carrying the refresh session.
	RefreshCookieName = "refreshToken"

	DefaultOTP = "123456"
)

// RecordedRequest is what the backend saw of one inbound request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	HasCookie     bool
	RequestID     string
}

type refreshSession struct {
	userID    string
	expiresAt time.Time
}

type file struct {
	contentType string
	data        []byte
}

// Backend is a fake BGV API server.
type Backend struct {
	router     chi.Router
	routes     []string
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	otp        string
	delay      time.Duration
	nowFunc    func() time.Time

	accounts *accounts

	mu       sync.Mutex
	mfa      map[string]string          // mfaSessionId -> user id
	sessions map[string]refreshSession  // refresh cookie value -> session
	invites  map[string]*Invite         // invitation token -> invite
	files    map[string]file            // file id -> content
	requests []RecordedRequest          // every request received, in order
	holds    map[string]chan struct{}   // route -> blocks handler until closed

	refreshCalls atomic.Int64
	failRefresh  atomic.Bool
}

type Option func(*Backend)

func WithSecret(secret []byte) Option {
	return func(b *Backend) {
		b.secret = secret
	}
}

// WithAccessTokenTTL sets the lifetime of issued access tokens. A negative
// value issues tokens that are already expired.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.accessTTL = ttl
	}
}

func WithOTP(otp string) Option {
	return func(b *Backend) {
		b.otp = otp
	}
}

// WithDelay makes every handler wait d before responding.
func WithDelay(d time.Duration) Option {
	return func(b *Backend) {
		b.delay = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(b *Backend) {
		b.nowFunc = now
	}
}

func New(options ...Option) *Backend {
	b := &Backend{
		secret:     DefaultSecret,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		otp:        DefaultOTP,
		nowFunc:    time.Now,
		accounts:   newAccounts(),
		mfa:        make(map[string]string),
		sessions:   make(map[string]refreshSession),
		invites:    make(map[string]*Invite),
		files:      make(map[string]file),
		holds:      make(map[string]chan struct{}),
	}
	for _, opt := range options {
		opt(b)
	}
	b.initRoutes()
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

func (b *Backend) initRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.recordMiddleware)
	r.Use(b.delayMiddleware)
	b.router = r

	b.registerRoute(http.MethodPost, RouteVerifyCredentials, b.verifyCredentials)
	b.registerRoute(http.MethodPost, RouteVerifyOTP, b.verifyOTP)
	b.registerRoute(http.MethodPost, RouteResendOTP, b.resendOTP)
	b.registerRoute(http.MethodPost, RouteRefreshToken, b.refreshToken)
	b.registerRoute(http.MethodPost, RouteLogout, b.logout)
	b.registerRoute(http.MethodGet, RouteVerifyInvite, b.verifyInvite(InviteCandidateForm))
	b.registerRoute(http.MethodGet, RouteVerifyAddressInvite, b.verifyInvite(InviteAddress))

	r.Group(func(r chi.Router) {
		r.Use(b.bearerMiddleware)
		r.Get(RouteUserMe, b.userMe)
		r.Get(RouteFiles, b.getFile)
	})
	b.routes = append(b.routes, "GET "+RouteUserMe, "GET "+RouteFiles)
}

func (b *Backend) registerRoute(method, pattern string, handler http.HandlerFunc) {
	b.routes = append(b.routes, method+" "+pattern)
	b.router.Method(method, pattern, handler)
}

// Routes lists every "METHOD /pattern" the backend serves.
func (b *Backend) Routes() []string {
	return append([]string(nil), b.routes...)
}

// AddUser registers a user who can log in with email and password.
func (b *Backend) AddUser(profile users.Profile, password string) (users.Profile, error) {
	return b.accounts.upsert(profile, password)
}

// StartSession creates a refresh session for userID, as a completed login
// would, and returns the cookie the browser would hold.
func (b *Backend) StartSession(userID string) (*http.Cookie, error) {
	if _, err := b.accounts.getByID(userID); err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return b.newRefreshCookie(userID), nil
}

// AddFile stores a file served from /files/{id}.
func (b *Backend) AddFile(id, contentType string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[id] = file{contentType: contentType, data: data}
}

// RefreshCalls returns how many times the refresh endpoint has been hit.
func (b *Backend) RefreshCalls() int {
	return int(b.refreshCalls.Load())
}

// FailRefresh makes the refresh endpoint answer 401 while fail is true.
func (b *Backend) FailRefresh(fail bool) {
	b.failRefresh.Store(fail)
}

// Hold blocks every request to route until the returned release func is called.
func (b *Backend) Hold(route string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[route] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.holds, route)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns every request received so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

func (b *Backend) newRefreshCookie(userID string) *http.Cookie {
	value := uuid.New().String()
	expires := b.nowFunc().Add(b.refreshTTL)

	b.mu.Lock()
	b.sessions[value] = refreshSession{userID: userID, expiresAt: expires}
	b.mu.Unlock()

	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (b *Backend) issueAccessToken(profile users.Profile) (string, error) {
	return signToken(b.secret, Claims{
		Subject:    profile.ID,
		ActiveRole: string(profile.Role),
		UserType:   string(profile.UserType),
		TokenType:  "access",
		ExpiresAt:  b.nowFunc().Add(b.accessTTL),
	})
}

// LogRoutes prints the route table, one coloured line per route.
func (b *Backend) LogRoutes() {
	for _, route := range b.routes {
		var method, path string
		if _, err := fmt.Sscanf(route, "%s %s", &method, &path); err != nil {
			continue
		}
		logRoute(method, path)
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
