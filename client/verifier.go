package client

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-blog-server/api"
	"github.com/jrsteele09/go-blog-server/internal/errors"
)

// tokenVerifier checks access tokens against the server's published JWKS.
type tokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func newTokenVerifier(c *Client) *tokenVerifier {
	// The key set refetches the JWKS on an unknown kid, so it outlives key rotation.
	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), c.httpClient), c.endpoint(jwksPath, nil))
	return &tokenVerifier{
		verifier: oidc.NewVerifier("", keySet, &oidc.Config{
			SkipClientIDCheck:    true,
			SkipIssuerCheck:      true,
			SupportedSigningAlgs: []string{oidc.RS256},
			Now:                  c.now,
		}),
	}
}

// verify checks the signature and expiry of the session's access token and that it belongs to the session's user.
func (tv *tokenVerifier) verify(ctx context.Context, session *api.Session) error {
	token, err := tv.verifier.Verify(ctx, session.AccessToken)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidToken, "verify access token: %v", err)
	}
	if token.Subject != session.User.ID {
		return fmt.Errorf("access token subject %q does not match user %q: %w", token.Subject, session.User.ID, errors.ErrInvalidToken)
	}
	return nil
}
