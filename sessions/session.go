package sessions

import (
	"github.com/jrsteele09/bgv-gateway/internal/utils"
	"github.com/jrsteele09/bgv-gateway/users"
)

// Session is a snapshot of the gateway's authentication state.
// The derived fields are only ever written together with AccessToken.
type Session struct {
	AccessToken  string         // Signed access token, empty when logged out
	User         *users.Profile // Profile of the logged in user
	LoggedInRole *string        // active_role claim
	UserType     *string        // user_type claim
	TokenType    *string        // token_type claim
	Loading      bool           // True until the bootstrap sequence has finished
}

// IsAuthenticated reports whether a token is held. Expiry is checked lazily
// when a request is dispatched.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != ""
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		u.Roles = append([]users.RoleType(nil), s.User.Roles...)
		s.User = &u
	}
	s.LoggedInRole = copyPtr(s.LoggedInRole)
	s.UserType = copyPtr(s.UserType)
	s.TokenType = copyPtr(s.TokenType)
	return s
}

func copyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return utils.Ptr(*p)
}
