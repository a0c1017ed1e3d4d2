package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// GoogleConfig configures the Google OAuth2 login flow.
type GoogleConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// GoogleIdentity is the typed projection of the provider's claim set.
// GivenName/FamilyName fall back to a split of the composite "name" claim when
// the provider omits them; Email is always required.
type GoogleIdentity struct {
	Email      string
	GivenName  string
	FamilyName string
}

// GoogleProvider implements the redirect login handshake against Google's
// OIDC endpoints.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	timeout     time.Duration
}

// NewGoogleProvider runs OIDC discovery and prepares the OAuth2 client.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig) (*GoogleProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("google provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("google provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("google provider: redirect url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(discoveryCtx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google provider: discovery failed: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     issuer.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}

	return &GoogleProvider{
		oauthConfig: oauthConfig,
		verifier:    issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		timeout:     timeout,
	}, nil
}

// AuthURL builds the redirect URL that begins the login handshake.
func (p *GoogleProvider) AuthURL(state, nonce string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
}

// Exchange swaps the authorization code for tokens, verifies the ID token and
// returns the typed identity projection.
func (p *GoogleProvider) Exchange(ctx context.Context, code, nonce string) (*GoogleIdentity, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("google provider: authorization code missing")
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(exchangeCtx, code)
	if err != nil {
		return nil, fmt.Errorf("google provider: code exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("google provider: id_token missing from token response")
	}

	idToken, err := p.verifier.Verify(exchangeCtx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("google provider: verify id token: %w", err)
	}

	if nonce != "" && idToken.Nonce != nonce {
		return nil, errors.New("google provider: nonce mismatch")
	}

	var raw struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("google provider: decode claims: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(raw.Email))
	if email == "" {
		return nil, errors.New("google provider: email claim is required")
	}
	if !raw.EmailVerified {
		return nil, errors.New("google provider: email is not verified")
	}

	identity := &GoogleIdentity{
		Email:      email,
		GivenName:  strings.TrimSpace(raw.GivenName),
		FamilyName: strings.TrimSpace(raw.FamilyName),
	}

	if identity.GivenName == "" && identity.FamilyName == "" && raw.Name != "" {
		parts := strings.SplitN(strings.TrimSpace(raw.Name), " ", 2)
		identity.GivenName = parts[0]
		if len(parts) > 1 {
			identity.FamilyName = parts[1]
		}
	}

	return identity, nil
}
