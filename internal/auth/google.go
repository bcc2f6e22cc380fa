package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tumortrace/classification-service/internal/models"
)

const googleIssuer = "https://accounts.google.com"

type GoogleIdentity struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleAuthenticator runs the authorization-code flow against Google and
// verifies the returned ID token.
type GoogleAuthenticator struct {
	config *oauth2.Config
}

func NewGoogleAuthenticator(clientID, clientSecret, redirectURL string) *GoogleAuthenticator {
	return &GoogleAuthenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *GoogleAuthenticator) Enabled() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

func (g *GoogleAuthenticator) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleAuthenticator) Exchange(ctx context.Context, code string) (*GoogleIdentity, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange code", models.ErrUnauthorized)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: missing id_token", models.ErrUnauthorized)
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("%w: google oidc discovery: %v", models.ErrGateway, err)
	}
	idToken, err := provider.Verifier(&oidc.Config{ClientID: g.config.ClientID}).Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id_token", models.ErrUnauthorized)
	}

	var identity GoogleIdentity
	if err := idToken.Claims(&identity); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token claims", models.ErrUnauthorized)
	}
	if identity.Sub == "" || identity.Email == "" {
		return nil, errors.New("google token missing sub or email")
	}
	return &identity, nil
}

// RandomState returns an unguessable value for the OAuth state parameter.
func RandomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
