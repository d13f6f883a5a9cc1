package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ExpirySkew is subtracted from a token's lifetime so a request never races
// the server-side expiry check.
const ExpirySkew = 10 * time.Second

// Claims are the facts the gateway derives from an access token.
type Claims struct {
	ActiveRole string    `json:"active_role"` // Role the user is currently acting as
	UserType   string    `json:"user_type"`   // internal, client or candidate
	TokenType  string    `json:"token_type"`  // access, invite, address-invite
	ExpiresAt  time.Time `json:"exp"`         // Expiry
}

// ExpiredAt reports whether the claims are expired at now, including ExpirySkew.
func (c *Claims) ExpiredAt(now time.Time) bool {
	if c == nil {
		return true
	}
	return !now.Add(ExpirySkew).Before(c.ExpiresAt)
}

type accessClaims struct {
	ActiveRole string `json:"active_role"`
	UserType   string `json:"user_type"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// Decode extracts the role, user type, token type and expiry claims from a
// signed access token. The signature is not verified: the gateway never holds
// the signing key, the backend verifies every request it receives.
func Decode(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty token: %w", gwerrors.ErrInvalidToken)
	}

	c := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, c); err != nil {
		return nil, fmt.Errorf("%w: %w", gwerrors.ErrInvalidToken, err)
	}
	if c.ExpiresAt == nil {
		return nil, fmt.Errorf("token missing exp claim: %w", gwerrors.ErrInvalidToken)
	}

	return &Claims{
		ActiveRole: c.ActiveRole,
		UserType:   c.UserType,
		TokenType:  c.TokenType,
		ExpiresAt:  c.ExpiresAt.Time,
	}, nil
}

// IsExpired treats a missing or undecodable token as expired, and a token
// within ExpirySkew of its exp claim as expired.
func IsExpired(raw string) bool {
	c, err := Decode(raw)
	if err != nil {
		return true
	}
	return c.ExpiredAt(NowTimeFunc())
}
