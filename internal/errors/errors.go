package errors

import "errors"

// Common error types for the gateway
var (
	// Session errors
	ErrSessionExpired = errors.New("session expired")
	ErrNotAuthorized  = errors.New("not authorized")

	// Token errors
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrRefreshFailed = errors.New("token refresh failed")

	// Request errors
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrInvalidInvite      = errors.New("invalid invitation")

	// Storage errors
	ErrNotFound = errors.New("not found")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
