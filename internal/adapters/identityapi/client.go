// Package identityapi implements the credential exchange client for the identity broker API.
package identityapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/target/mmk-console/internal/adapters/oauth2x"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

// Endpoint paths relative to BaseURL.
const (
	TokenPath       = "/token"
	SSOLoginPath    = "/sso/login"
	SSOCallbackPath = "/sso/callback"
	RoleHintPath    = "/api-rol"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

var (
	_ ports.CredentialExchanger = (*Client)(nil)
	_ ports.RoleHintLookup      = (*Client)(nil)
)

// Config holds configuration for the broker client.
type Config struct {
	BaseURL    string
	ClientID   string       // Optional, sent with the password grant when set
	HTTPClient *http.Client // Optional, defaults to a client with a 30s timeout
	Logger     *slog.Logger
}

// Client talks to the identity broker endpoints. It is stateless and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	grant      oauth2x.PasswordGrant
	logger     *slog.Logger
}

// NewClient constructs a broker client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity API base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse identity API base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		grant: oauth2x.PasswordGrant{
			TokenURL:   base + TokenPath,
			ClientID:   cfg.ClientID,
			HTTPClient: httpClient,
		},
		logger: logger,
	}, nil
}

// Login sends the credentials form-encoded to POST /token.
func (c *Client) Login(ctx context.Context, username, password string) (domainauth.TokenBundle, error) {
	return c.grant.Exchange(ctx, username, password)
}

type ssoLoginResponse struct {
	AuthURL string `json:"auth_url"`
	Message string `json:"message"`
}

// SSOLoginURL fetches the identity-provider redirect target from GET /sso/login.
func (c *Client) SSOLoginURL(ctx context.Context) (domainauth.SSOLogin, error) {
	const op = "get sso login url"

	status, body, err := c.get(ctx, SSOLoginPath, nil)
	if err != nil {
		return domainauth.SSOLogin{}, &domainauth.AuthError{Reason: domainauth.ReasonTransport, Op: op, Err: err}
	}
	if status < 200 || status > 299 {
		return domainauth.SSOLogin{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Detail: oauth2x.DetailFromBody(body),
			Err:    fmt.Errorf("unexpected status %d", status),
		}
	}

	var resp ssoLoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainauth.SSOLogin{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}
	if resp.AuthURL == "" {
		return domainauth.SSOLogin{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Err:    errors.New("response missing auth_url"),
		}
	}

	return domainauth.SSOLogin{AuthURL: resp.AuthURL, Message: resp.Message}, nil
}

// ExchangeSSOCode exchanges an authorization code via GET /sso/callback and normalizes the response.
func (c *Client) ExchangeSSOCode(ctx context.Context, code string) (domainauth.SSOExchange, error) {
	const op = "exchange sso code"

	if strings.TrimSpace(code) == "" {
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonInvalidCode,
			Op:     op,
			Err:    errors.New("authorization code is required"),
		}
	}

	status, body, err := c.get(ctx, SSOCallbackPath, url.Values{"code": {code}})
	if err != nil {
		return domainauth.SSOExchange{}, &domainauth.AuthError{Reason: domainauth.ReasonTransport, Op: op, Err: err}
	}
	switch {
	case status >= 400 && status < 500:
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonInvalidCode,
			Op:     op,
			Detail: oauth2x.DetailFromBody(body),
			Err:    fmt.Errorf("unexpected status %d", status),
		}
	case status < 200 || status > 299:
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Detail: oauth2x.DetailFromBody(body),
			Err:    fmt.Errorf("unexpected status %d", status),
		}
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return domainauth.SSOExchange{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}

	exchange, err := NormalizeExchange(raw)
	if err != nil {
		var ae *domainauth.AuthError
		if errors.As(err, &ae) {
			ae.Op = op
			c.logger.WarnContext(ctx, "sso exchange returned no usable token", "fields", ae.Fields)
		}
		return domainauth.SSOExchange{}, err
	}
	return exchange, nil
}

type roleHintResponse struct {
	ID    any      `json:"id"`
	Email string   `json:"email"`
	Admin flexBool `json:"admin"`
}

// LookupRole fetches the secondary role signal from GET /api-rol.
func (c *Client) LookupRole(ctx context.Context, email string) (domainauth.RoleHint, error) {
	const op = "lookup role"

	status, body, err := c.get(ctx, RoleHintPath, url.Values{"email": {email}})
	if err != nil {
		return domainauth.RoleHint{}, &domainauth.AuthError{Reason: domainauth.ReasonTransport, Op: op, Err: err}
	}
	if status < 200 || status > 299 {
		return domainauth.RoleHint{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Detail: oauth2x.DetailFromBody(body),
			Err:    fmt.Errorf("unexpected status %d", status),
		}
	}

	var resp roleHintResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domainauth.RoleHint{}, &domainauth.AuthError{
			Reason: domainauth.ReasonTransport,
			Op:     op,
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}

	return domainauth.RoleHint{
		ID:    stringOf(resp.ID),
		Email: resp.Email,
		Admin: bool(resp.Admin),
	}, nil
}

// get performs a GET request and returns the status code and a bounded body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// flexBool accepts booleans, 0/1 numbers and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean value %s", data)
	}
	return nil
}
