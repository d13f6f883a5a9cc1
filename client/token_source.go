package client

import (
	"context"
	"fmt"

	"github.com/jrsteele09/bgv-gateway/token"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	d   *Dispatcher
}

// TokenSource exposes the session's access token as an oauth2.TokenSource,
// refreshing it through the gate exactly as AuthenticatedRequest would. It
// lets oauth2.NewClient based code share the gateway's bearer lifecycle.
func (d *Dispatcher) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, d: d}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	raw, err := ts.d.BearerToken(ts.ctx)
	if err != nil {
		return nil, fmt.Errorf("tokenSource.Token: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken: raw,
		TokenType:   "Bearer",
	}
	if claims, err := token.Decode(raw); err == nil {
		tok.Expiry = claims.ExpiresAt.Add(-token.ExpirySkew)
	}
	return tok, nil
}
