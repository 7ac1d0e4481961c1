package auth

import (
	"context"
	"time"

	"github.com/ammiranda/forest_service/models"
)

// Authenticator exchanges credentials for an access token
type Authenticator struct {
	verifier CredentialVerifier
	tokens   *TokenService
	now      func() time.Time
}

// NewAuthenticator wires a verifier to a token service
func NewAuthenticator(verifier CredentialVerifier, tokens *TokenService) *Authenticator {
	return &Authenticator{verifier: verifier, tokens: tokens, now: time.Now}
}

// Login verifies the credentials and issues a token
func (a *Authenticator) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	principal, err := a.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := a.tokens.Issue(principal, a.now())
	if err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:      token,
		ExpiresInSeconds: int(a.tokens.Lifetime().Seconds()),
	}, nil
}

// Tokens exposes the token service for request authentication
func (a *Authenticator) Tokens() *TokenService {
	return a.tokens
}
