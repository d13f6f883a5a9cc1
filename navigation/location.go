// Package navigation tracks where the user currently is and which routes are
// reachable without a session.
package navigation

import (
	"net/url"
	"strings"
	"sync"
)

const (
	RouteLogin      = "/login"
	RouteDashboard  = "/dashboard"
	RouteSelectRole = "/select-role"
)

// candidateRoutes authenticate with a one-time link token instead of the
// cookie-backed session, and must never trigger a session refresh.
var candidateRoutes = []string{
	"/fill-candidate-form",
	"/verify-address",
	"/address-verification",
	"/candidate-verification",
	"/reset-password",
	"/forgot-password",
}

// IsPublicPath reports whether path (query string allowed) is a public
// candidate-facing route or falls under one of the extra prefixes.
func IsPublicPath(path string, extra ...string) bool {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	path = "/" + strings.Trim(path, "/")

	for _, routes := range [][]string{candidateRoutes, extra} {
		for _, prefix := range routes {
			prefix = "/" + strings.Trim(prefix, "/")
			if prefix == "/" {
				continue
			}
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// Location holds the current navigation path. It stands in for the browser
// location and is safe for concurrent use.
type Location struct {
	mu          sync.RWMutex
	path        string
	publicExtra []string
}

// NewLocation starts at path. extraPublic adds public route prefixes.
func NewLocation(path string, extraPublic ...string) *Location {
	return &Location{path: path, publicExtra: extraPublic}
}

func (l *Location) Set(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.path = path
}

func (l *Location) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// Query returns the query parameter key of the current path.
func (l *Location) Query(key string) string {
	u, err := url.Parse(l.Path())
	if err != nil {
		return ""
	}
	return u.Query().Get(key)
}

// IsPublic reports whether the current path is a public route. A nil
// Location is never public.
func (l *Location) IsPublic() bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return IsPublicPath(l.path, l.publicExtra...)
}
