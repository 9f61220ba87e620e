// Package oidc provides a credential exchanger that talks to an OIDC provider directly.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/target/mmk-console/internal/adapters/oauth2x"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
	"golang.org/x/oauth2"
)

// defaultPendingTTL bounds how long an issued nonce may be redeemed.
const defaultPendingTTL = 10 * time.Minute

var _ ports.CredentialExchanger = (*Provider)(nil)

// Provider implements ports.CredentialExchanger using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	useIDToken bool
	logger     *slog.Logger

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	pendingTTL time.Duration
	now        func() time.Time
	mu         sync.Mutex
	pending    map[string]time.Time // nonce -> expiry
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	// UseIDToken stores the verified ID token as the session access token so its claims drive roles.
	UseIDToken bool
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
	Logger     *slog.Logger
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a new OIDC provider. Discovery happens once, here.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(oauth2x.WithHTTPClient(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(config.Scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient:   httpClient,
		useIDToken:   config.UseIDToken,
		logger:       logger.With("component", "oidc_exchanger"),
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		pendingTTL:   defaultPendingTTL,
		now:          time.Now,
		pending:      make(map[string]time.Time),
	}, nil
}

// Login performs the password grant against the provider's token endpoint.
func (p *Provider) Login(ctx context.Context, username, password string) (domainauth.TokenBundle, error) {
	grant := oauth2x.PasswordGrant{
		TokenURL:     p.config.Endpoint.TokenURL,
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		Scopes:       p.config.Scopes,
		HTTPClient:   p.httpClient,
	}
	return grant.Exchange(ctx, username, password)
}

// SSOLoginURL builds the authorization URL and remembers its nonce until redeemed or expired.
func (p *Provider) SSOLoginURL(_ context.Context) (domainauth.SSOLogin, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return domainauth.SSOLogin{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return domainauth.SSOLogin{}, fmt.Errorf("generate nonce: %w", err)
	}

	p.mu.Lock()
	p.prunePendingLocked()
	p.pending[nonce] = p.now().Add(p.pendingTTL)
	p.mu.Unlock()

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return domainauth.SSOLogin{AuthURL: authURL}, nil
}

// ExchangeSSOCode redeems the code, verifies the ID token and its nonce, and returns the tokens.
func (p *Provider) ExchangeSSOCode(ctx context.Context, code string) (domainauth.SSOExchange, error) {
	const op = "exchange sso code"

	if strings.TrimSpace(code) == "" {
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonInvalidCode,
			Op:     op,
			Err:    errors.New("authorization code is required"),
		}
	}

	ctx = oauth2x.WithHTTPClient(ctx, p.httpClient)
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domainauth.SSOExchange{}, oauth2x.ClassifyTokenError(op, err, domainauth.ReasonInvalidCode)
	}

	fields, rawID, err := p.extractFromIDToken(ctx, token)
	if err != nil {
		return domainauth.SSOExchange{}, &domainauth.AuthError{Reason: domainauth.ReasonInvalidCode, Op: op, Err: err}
	}

	if fields.email == "" || fields.userID == "" {
		if fillErr := p.fillFromUserInfo(ctx, token.AccessToken, &fields); fillErr != nil {
			p.logger.WarnContext(ctx, "userinfo lookup failed", "error", fillErr)
		}
	}

	access := token.AccessToken
	if p.useIDToken && rawID != "" {
		access = rawID
	}
	if access == "" {
		return domainauth.SSOExchange{}, &domainauth.AuthError{Reason: domainauth.ReasonMissingToken, Op: op}
	}

	out := domainauth.SSOExchange{
		Tokens: domainauth.TokenBundle{
			AccessToken:  access,
			RefreshToken: token.RefreshToken,
			TokenType:    token.TokenType,
		},
	}
	if id := fields.identity(); id != (domainauth.Identity{}) {
		out.UserInfo = &id
	}
	return out, nil
}

// UserInfo represents the user information from the OIDC userinfo endpoint.
type UserInfo struct {
	Subject           string `json:"sub"`
	SamAccountName    string `json:"samaccountname"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	FirstName         string `json:"firstname"`
	LastName          string `json:"lastname"`
	Email             string `json:"email"`
	Mail              string `json:"mail"`
}

func (p *Provider) getUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	var userInfo UserInfo
	if claimsErr := ui.Claims(&userInfo); claimsErr != nil {
		return nil, fmt.Errorf("decode user info: %w", claimsErr)
	}
	return &userInfo, nil
}

type idFields struct {
	userID     string
	username   string
	email      string
	givenName  string
	familyName string
}

func (f idFields) identity() domainauth.Identity {
	return domainauth.Identity{
		ID:        f.userID,
		Username:  f.username,
		Email:     f.email,
		FirstName: f.givenName,
		LastName:  f.familyName,
	}
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token) (idFields, string, error) {
	var f idFields
	if !p.hasOpenIDScope() {
		return f, "", nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return f, "", err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return f, "", fmt.Errorf("verify id_token: %w", err)
	}
	if !p.redeemNonce(idTok.Nonce) {
		return f, "", errors.New("invalid nonce")
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return f, "", fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	return mapIDTokenClaims(claims), rawID, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, f *idFields) error {
	ui, err := p.getUserInfo(ctx, accessToken)
	if err != nil {
		return err
	}
	fillFromUserInfoClaims(f, *ui)
	return nil
}

// redeemNonce consumes nonce if it was issued by SSOLoginURL and has not expired.
func (p *Provider) redeemNonce(nonce string) bool {
	if nonce == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.pending[nonce]
	delete(p.pending, nonce)
	return ok && p.now().Before(exp)
}

func (p *Provider) prunePendingLocked() {
	now := p.now()
	for nonce, exp := range p.pending {
		if !now.Before(exp) {
			delete(p.pending, nonce)
		}
	}
}

// idTokenClaims is a superset of standard OIDC and AD/ADFS claim shapes.
type idTokenClaims struct {
	Sub               string `json:"sub"`
	SamAccountName    string `json:"samaccountname"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	FirstName         string `json:"firstname"`
	LastName          string `json:"lastname"`
	Email             string `json:"email"`
	Mail              string `json:"mail"`
}

func mapIDTokenClaims(c idTokenClaims) idFields {
	return idFields{
		userID:     c.Sub,
		username:   firstNonEmpty(c.PreferredUsername, c.SamAccountName),
		email:      firstNonEmpty(c.Email, c.Mail),
		givenName:  firstNonEmpty(c.GivenName, c.FirstName),
		familyName: firstNonEmpty(c.FamilyName, c.LastName),
	}
}

// fillFromUserInfoClaims fills missing fields only.
func fillFromUserInfoClaims(f *idFields, ui UserInfo) {
	if f.userID == "" {
		f.userID = ui.Subject
	}
	if f.username == "" {
		f.username = firstNonEmpty(ui.PreferredUsername, ui.SamAccountName)
	}
	if f.email == "" {
		f.email = firstNonEmpty(ui.Email, ui.Mail)
	}
	if f.givenName == "" {
		f.givenName = firstNonEmpty(ui.GivenName, ui.FirstName)
	}
	if f.familyName == "" {
		f.familyName = firstNonEmpty(ui.FamilyName, ui.LastName)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, (length*3+3)/4+1)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, "openid")
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
