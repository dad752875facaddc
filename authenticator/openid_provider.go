package authenticator

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OpenIDProvider signs admins in against an OpenID Connect issuer
type OpenIDProvider struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	config   oauth2.Config
}

// NewOpenIDProvider discovers the issuer and creates a provider for it
func NewOpenIDProvider(ctx context.Context, cfg Config) (*OpenIDProvider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC issuer: %w", err)
	}

	return &OpenIDProvider{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// AuthCodeURL returns the issuer login URL carrying state
func (p *OpenIDProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Authenticate redeems an authorization code and returns the verified claims
// of the signed-in user. Profile claims missing from the ID token are filled
// from the userinfo endpoint.
func (p *OpenIDProvider) Authenticate(ctx context.Context, code string) (Claims, error) {
	if code == "" {
		return nil, errors.New("authorization code is missing")
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, _ := token.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	claims := Claims{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode ID token claims: %w", err)
	}

	if claims.Email() != "" || p.provider.UserInfoEndpoint() == "" {
		return claims, nil
	}

	info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	if info.Subject != idToken.Subject {
		return nil, errors.New("userinfo subject does not match ID token")
	}

	profile := Claims{}
	if err := info.Claims(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo claims: %w", err)
	}
	claims.fillProfile(profile)

	return claims, nil
}
