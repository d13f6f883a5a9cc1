package auth

import (
	"fmt"
	"regexp"
	"strings"

	gwerrors "github.com/jrsteele09/bgv-gateway/internal/errors"
)

var otpPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

// Validator checks request input before anything is sent to the backend.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), gwerrors.ErrInvalidRequest)
}

// ValidateCredentials validates login credentials
func (v *Validator) ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email is required")
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || !strings.Contains(email[at+1:], ".") || strings.ContainsAny(email, " \t\r\n") {
		return invalid("invalid email format")
	}
	if password == "" {
		return invalid("password is required")
	}
	return nil
}

// ValidateOTP checks the one-time password is 4 to 8 digits.
func (v *Validator) ValidateOTP(mfaSessionID, otp string) error {
	if strings.TrimSpace(mfaSessionID) == "" {
		return invalid("mfa session id is required")
	}
	if !otpPattern.MatchString(otp) {
		return invalid("otp must be 4 to 8 digits")
	}
	return nil
}

func (v *Validator) ValidateMFASession(mfaSessionID string) error {
	if strings.TrimSpace(mfaSessionID) == "" {
		return invalid("mfa session id is required")
	}
	return nil
}

// ValidateToken checks token has the three non-empty segments of a JWT.
func (v *Validator) ValidateToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid("token is required")
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return invalid("invalid token format: must be a valid JWT")
	}
	for i, part := range parts {
		if len(part) == 0 {
			return invalid("invalid token format: part %d is empty", i+1)
		}
	}
	return nil
}

func (v *Validator) ValidateFileID(fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return invalid("file id is required")
	}
	if strings.ContainsAny(fileID, "/?#") {
		return invalid("file id %q contains reserved characters", fileID)
	}
	return nil
}
