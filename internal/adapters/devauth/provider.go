// Package devauth provides a config-driven credential exchanger for local development.
package devauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

const (
	defaultTokenTTL = 8 * time.Hour
	codeTTL         = 5 * time.Minute
)

// Config controls the dev exchanger. Username, Password, Email and SigningKey are required.
type Config struct {
	Username     string
	Password     string
	UserID       string
	Email        string
	FirstName    string
	LastName     string
	Admin        bool
	RoleID       string
	SigningKey   string
	TokenTTL     time.Duration // default 8h when zero
	CallbackPath string        // default /auth/callback
}

var (
	_ ports.CredentialExchanger = (*Provider)(nil)
	_ ports.RoleHintLookup      = (*Provider)(nil)
)

// Provider short-circuits the identity service. Login checks the configured credentials,
// SSO issues single-use codes that redirect straight back to our own callback, and every
// successful exchange mints a fresh HS256 token carrying the configured role claims.
type Provider struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	codes map[string]time.Time // code -> expiry
}

// NewProvider constructs a dev exchanger from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Username == "" {
		return nil, errors.New("dev auth: Username is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("dev auth: Password is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.SigningKey == "" {
		return nil, errors.New("dev auth: SigningKey is required")
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/auth/callback"
	}
	if cfg.UserID == "" {
		cfg.UserID = cfg.Username
	}
	if cfg.Admin && cfg.RoleID == "" {
		cfg.RoleID = "1"
	}
	return &Provider{cfg: cfg, now: time.Now, codes: make(map[string]time.Time)}, nil
}

func (p *Provider) Login(_ context.Context, username, password string) (domainauth.TokenBundle, error) {
	if username != p.cfg.Username || password != p.cfg.Password {
		return domainauth.TokenBundle{}, &domainauth.AuthError{
			Reason: domainauth.ReasonInvalidCredentials,
			Op:     "login",
			Detail: "Incorrect username or password",
		}
	}
	return p.mint()
}

// SSOLoginURL returns a local callback URL carrying a fresh single-use code.
func (p *Provider) SSOLoginURL(_ context.Context) (domainauth.SSOLogin, error) {
	code := uuid.NewString()

	p.mu.Lock()
	now := p.now()
	for c, exp := range p.codes {
		if !now.Before(exp) {
			delete(p.codes, c)
		}
	}
	p.codes[code] = now.Add(codeTTL)
	p.mu.Unlock()

	return domainauth.SSOLogin{
		AuthURL: p.cfg.CallbackPath + "?" + url.Values{"code": {code}}.Encode(),
		Message: "development sign-in",
	}, nil
}

// ExchangeSSOCode redeems a code issued by SSOLoginURL. Codes work once.
func (p *Provider) ExchangeSSOCode(_ context.Context, code string) (domainauth.SSOExchange, error) {
	if !p.redeem(strings.TrimSpace(code)) {
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonInvalidCode,
			Op:     "exchange sso code",
			Detail: "authorization code is invalid or expired",
		}
	}
	tokens, err := p.mint()
	if err != nil {
		return domainauth.SSOExchange{}, err
	}
	id := p.identity()
	return domainauth.SSOExchange{Tokens: tokens, UserInfo: &id}, nil
}

// LookupRole answers for the configured user only.
func (p *Provider) LookupRole(_ context.Context, email string) (domainauth.RoleHint, error) {
	if !strings.EqualFold(email, p.cfg.Email) {
		return domainauth.RoleHint{Email: email}, nil
	}
	return domainauth.RoleHint{ID: p.cfg.RoleID, Email: p.cfg.Email, Admin: p.cfg.Admin}, nil
}

func (p *Provider) redeem(code string) bool {
	if code == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.codes[code]
	delete(p.codes, code)
	return ok && p.now().Before(exp)
}

func (p *Provider) identity() domainauth.Identity {
	return domainauth.Identity{
		ID:        p.cfg.UserID,
		Username:  p.cfg.Username,
		Email:     p.cfg.Email,
		FirstName: p.cfg.FirstName,
		LastName:  p.cfg.LastName,
	}
}

func (p *Provider) mint() (domainauth.TokenBundle, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"sub":         p.cfg.UserID,
		"email":       p.cfg.Email,
		"username":    p.cfg.Username,
		"given_name":  p.cfg.FirstName,
		"family_name": p.cfg.LastName,
		"rol":         "user",
		"iat":         now.Unix(),
		"exp":         now.Add(p.cfg.TokenTTL).Unix(),
		"jti":         uuid.NewString(),
	}
	if p.cfg.Admin {
		claims["rol"] = domainauth.AdminRole
		claims["id_api_rol"] = p.cfg.RoleID
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(p.cfg.SigningKey))
	if err != nil {
		return domainauth.TokenBundle{}, fmt.Errorf("sign dev token: %w", err)
	}
	return domainauth.TokenBundle{
		AccessToken:  signed,
		RefreshToken: uuid.NewString(),
		TokenType:    "bearer",
	}, nil
}
