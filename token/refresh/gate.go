package refresh

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/bgv-gateway/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// DefaultTimeout bounds a single refresh call.
const DefaultTimeout = 30 * time.Second

// Result is what a successful refresh returns.
type Result struct {
	AccessToken string
	User        *users.Profile
}

// Func performs the refresh call against the backend.
type Func func(ctx context.Context) (*Result, error)

// Policy decides what callers arriving during an in-flight refresh get.
type Policy int

const (
	// PolicyShare makes late callers wait for the in-flight refresh and
	// receive its token.
	PolicyShare Policy = iota
	// PolicyDrop returns "" to late callers immediately.
	PolicyDrop
)

// ParsePolicy maps "drop" to PolicyDrop and anything else to PolicyShare.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(strings.TrimSpace(s), "drop") {
		return PolicyDrop
	}
	return PolicyShare
}

func (p Policy) String() string {
	if p == PolicyDrop {
		return "drop"
	}
	return "share"
}

// Store is the part of the session store the gate writes to.
type Store interface {
	SetAuthData(token string) error
	SetUser(profile *users.Profile)
	Clear()
}

// PublicChecker reports whether the current route is a public candidate route.
type PublicChecker interface {
	IsPublic() bool
}

// Gate makes sure at most one refresh call is outstanding at a time.
type Gate struct {
	store     Store
	refreshFn Func
	location  PublicChecker
	policy    Policy
	timeout   time.Duration
	group     singleflight.Group
	inFlight  atomic.Bool
}

type GateOption func(*Gate)

func WithPolicy(p Policy) GateOption {
	return func(g *Gate) {
		g.policy = p
	}
}

func WithTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		g.timeout = d
	}
}

// NewGate returns a gate that refreshes through refreshFn and writes the
// outcome to store. location may be nil when there are no public routes.
func NewGate(store Store, refreshFn Func, location PublicChecker, options ...GateOption) *Gate {
	g := &Gate{
		store:     store,
		refreshFn: refreshFn,
		location:  location,
		policy:    PolicyShare,
		timeout:   DefaultTimeout,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// InFlight reports whether a refresh call is currently outstanding.
func (g *Gate) InFlight() bool {
	return g.inFlight.Load()
}

// Refresh obtains a new access token and returns it, or "" when there is no
// usable session. The only error returned is ctx's, when the caller gives up
// waiting; the refresh itself carries on for any other waiters.
func (g *Gate) Refresh(ctx context.Context) (string, error) {
	if g.location != nil && g.location.IsPublic() {
		log.Debug().Msg("Skipping token refresh on public route")
		return "", nil
	}

	if g.policy == PolicyDrop {
		if !g.inFlight.CompareAndSwap(false, true) {
			log.Debug().Msg("Token refresh already in flight, dropping caller")
			return "", nil
		}
		// A finished call may still be registered with the group; never join it.
		g.group.Forget(refreshKey)
	}

	ch := g.group.DoChan(refreshKey, func() (any, error) {
		g.inFlight.Store(true)
		defer g.inFlight.Store(false)
		return g.run(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (g *Gate) run(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	res, err := g.refreshFn(ctx)
	if err != nil {
		log.Warn().Err(err).Dur("took", time.Since(start)).Msg("Token refresh failed, clearing session")
		g.store.Clear()
		return ""
	}
	if res == nil || res.AccessToken == "" {
		log.Warn().Msg("Token refresh returned no access token, clearing session")
		g.store.Clear()
		return ""
	}
	if err := g.store.SetAuthData(res.AccessToken); err != nil {
		// SetAuthData has already cleared the session
		return ""
	}
	if res.User != nil {
		g.store.SetUser(res.User)
	}
	log.Debug().Dur("took", time.Since(start)).Msg("Token refreshed")
	return res.AccessToken
}
