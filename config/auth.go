package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects which credential exchanger the console talks to.
type AuthMode string

const (
	// AuthModeBroker uses the identity broker endpoints (/token, /sso/login, /sso/callback).
	AuthModeBroker AuthMode = "broker"
	// AuthModeOIDC talks to an OpenID Connect provider directly.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock mints local tokens (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "broker", "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: broker, oidc, mock)", v)
	}
}

// IdentityAPIConfig points at the identity broker.
type IdentityAPIConfig struct {
	URL      string        `env:"URL"       envDefault:"http://localhost:8000"`
	ClientID string        `env:"CLIENT_ID"`
	Timeout  time.Duration `env:"TIMEOUT"   envDefault:"30s"`
}

// OIDCConfig contains OAuth/OIDC configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"mmk-console"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// UseIDToken stores the ID token as the session token so its claims drive roles.
	UseIDToken bool `env:"USE_ID_TOKEN" envDefault:"true"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Username   string        `env:"USERNAME"    envDefault:"dev"`
	Password   string        `env:"PASSWORD"    envDefault:"dev"`
	UserID     string        `env:"USER_ID"     envDefault:"dev-user"`
	Email      string        `env:"EMAIL"       envDefault:"dev@example.com"`
	FirstName  string        `env:"FIRST_NAME"  envDefault:"Dev"`
	LastName   string        `env:"LAST_NAME"   envDefault:"User"`
	Admin      bool          `env:"ADMIN"       envDefault:"true"`
	RoleID     string        `env:"ROLE_ID"     envDefault:"1"`
	SigningKey string        `env:"SIGNING_KEY" envDefault:"mmk-console-dev-signing-key"`
	TokenTTL   time.Duration `env:"TOKEN_TTL"   envDefault:"8h"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which credential exchanger to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"broker"`

	// IdentityAPI configuration (used when Mode=broker).
	IdentityAPI IdentityAPIConfig `envPrefix:"IDENTITY_API_"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// RoleHints enables the secondary role lookup that can revoke a claim-derived admin grant.
	RoleHints bool `env:"ROLE_HINTS_ENABLED" envDefault:"false"`
}

// Sanitize applies guardrails to authentication configuration values.
func (a *AuthConfig) Sanitize() {
	a.IdentityAPI.URL = strings.TrimSuffix(strings.TrimSpace(a.IdentityAPI.URL), "/")
	if a.IdentityAPI.Timeout <= 0 {
		a.IdentityAPI.Timeout = 30 * time.Second
	}
	if a.DevAuth.TokenTTL <= 0 {
		a.DevAuth.TokenTTL = 8 * time.Hour
	}
}
