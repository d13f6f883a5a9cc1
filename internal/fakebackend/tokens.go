package fakebackend

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSecret signs every token the fake backend issues unless WithSecret is used.
var DefaultSecret = []byte("bgv-fake-backend-secret")

// Claims describes a token to mint.
type Claims struct {
	Subject    string
	ActiveRole string
	UserType   string
	TokenType  string
	ExpiresAt  time.Time
}

// MintToken signs claims with DefaultSecret. Empty claim values are omitted
// from the token, a zero ExpiresAt omits exp.
func MintToken(c Claims) string {
	raw, err := signToken(DefaultSecret, c)
	if err != nil {
		panic(err)
	}
	return raw
}

func signToken(secret []byte, c Claims) (string, error) {
	claims := jwt.MapClaims{
		"iat": time.Now().Unix(),
		"jti": uuid.New().String(), // Unique token ID
	}
	optional := map[string]string{
		"sub":         c.Subject,
		"active_role": c.ActiveRole,
		"user_type":   c.UserType,
		"token_type":  c.TokenType,
	}
	for k, v := range optional {
		if v != "" {
			claims[k] = v
		}
	}
	if !c.ExpiresAt.IsZero() {
		claims["exp"] = c.ExpiresAt.Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// verifyToken checks the signature and expiry of raw and returns its claims.
func verifyToken(secret []byte, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}
