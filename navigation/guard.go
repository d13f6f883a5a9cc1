package navigation

import (
	"github.com/jrsteele09/bgv-gateway/sessions"
	"github.com/jrsteele09/bgv-gateway/users"
)

// Decision is the outcome of a route guard.
type Decision int

const (
	Wait          Decision = iota // Session is still loading, show a spinner
	RedirectLogin                 // No session, go to RouteLogin
	Forbidden                     // Session present but role not permitted
	Allow
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	case Forbidden:
		return "forbidden"
	case Allow:
		return "allow"
	}
	return "unknown"
}

// Guard decides whether a protected route may render for s. With no allowed
// roles any authenticated session is enough.
func Guard(s sessions.Session, allowed ...users.RoleType) Decision {
	if s.Loading {
		return Wait
	}
	if !s.IsAuthenticated() {
		return RedirectLogin
	}
	if len(allowed) == 0 {
		return Allow
	}
	if s.LoggedInRole == nil {
		return Forbidden
	}
	for _, role := range allowed {
		if string(role) == *s.LoggedInRole {
			return Allow
		}
	}
	return Forbidden
}
