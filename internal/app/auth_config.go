package app

import (
	"github.com/homelearnhq/homelearn/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// GoogleProviderConfig converts AuthConfig into Google provider parameters.
func (c AuthConfig) GoogleProviderConfig() auth.GoogleConfig {
	return auth.GoogleConfig{
		Enabled:      c.Google.Enabled,
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
	}
}
