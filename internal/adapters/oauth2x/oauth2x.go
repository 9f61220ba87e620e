// Package oauth2x holds the OAuth2 helpers shared by the credential exchange adapters.
package oauth2x

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"golang.org/x/oauth2"
)

// PasswordGrant performs the resource-owner password credentials grant.
type PasswordGrant struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client // Optional, defaults to http.DefaultClient
}

// Exchange sends the credentials form-encoded to TokenURL in a single attempt.
func (g PasswordGrant) Exchange(ctx context.Context, username, password string) (domainauth.TokenBundle, error) {
	cfg := &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Scopes:       g.Scopes,
		Endpoint: oauth2.Endpoint{
			TokenURL:  g.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	tok, err := cfg.PasswordCredentialsToken(WithHTTPClient(ctx, g.HTTPClient), username, password)
	if err != nil {
		return domainauth.TokenBundle{}, ClassifyTokenError("login", err, domainauth.ReasonInvalidCredentials)
	}

	return domainauth.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}, nil
}

// WithHTTPClient attaches client to ctx the way golang.org/x/oauth2 expects it.
func WithHTTPClient(ctx context.Context, client *http.Client) context.Context {
	if client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// ClassifyTokenError maps an oauth2 token endpoint failure to a domain AuthError.
// 4xx responses become the given rejection reason; everything else is a transport failure.
func ClassifyTokenError(op string, err error, rejected domainauth.Reason) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		detail := re.ErrorDescription
		if detail == "" {
			detail = DetailFromBody(re.Body)
		}
		reason := domainauth.ReasonTransport
		if re.Response.StatusCode >= 400 && re.Response.StatusCode < 500 {
			reason = rejected
		}
		return &domainauth.AuthError{Reason: reason, Op: op, Detail: detail, Err: err}
	}
	return &domainauth.AuthError{Reason: domainauth.ReasonTransport, Op: op, Err: err}
}

// DetailFromBody extracts a human-readable message from an error response body.
// It understands {"detail": "..."}, {"message": "..."} and {"error_description": "..."}.
func DetailFromBody(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error_description"} {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
