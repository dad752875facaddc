package authenticator

import (
	"context"
	"errors"
)

// Config holds OpenID Connect provider configuration
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func (c Config) validate() error {
	switch {
	case c.Issuer == "":
		return errors.New("issuer is required")
	case c.ClientID == "":
		return errors.New("client ID is required")
	case c.ClientSecret == "":
		return errors.New("client secret is required")
	case c.CallbackURL == "":
		return errors.New("callback URL is required")
	}
	return nil
}

// Claims represents user claims from the ID token
type Claims map[string]interface{}

// profileClaims are copied from userinfo when the ID token lacks them
var profileClaims = []string{"email", "email_verified", "name", "nickname"}

// Subject returns the "sub" claim
func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// Email returns the "email" claim. Addresses the provider marks as
// unverified are ignored.
func (c Claims) Email() string {
	if verified, ok := c["email_verified"].(bool); ok && !verified {
		return ""
	}
	email, _ := c["email"].(string)
	return email
}

// DisplayName returns the first of name, nickname, email and sub that is set
func (c Claims) DisplayName() string {
	for _, key := range []string{"name", "nickname", "email", "sub"} {
		if v, ok := c[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// fillProfile copies profile claims from other that c does not carry
func (c Claims) fillProfile(other Claims) {
	for _, key := range profileClaims {
		if _, ok := c[key]; ok {
			continue
		}
		if v, ok := other[key]; ok {
			c[key] = v
		}
	}
}

// Provider signs users in with an external identity provider
type Provider interface {
	AuthCodeURL(state string) string
	Authenticate(ctx context.Context, code string) (Claims, error)
}
