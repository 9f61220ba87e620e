package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
)

// User-facing messages.
const (
	msgLoginFailed  = "login failed"
	msgConnection   = "No se pudo conectar con el servicio de autenticación"
	msgInvalidCode  = "El código de autorización no es válido o ha expirado"
	msgMissingToken = "La respuesta de autenticación no contiene un token"
	msgUnexpected   = "Error inesperado durante la autenticación"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Exchanger ports.CredentialExchanger
	Sessions  *SessionManager
	Logger    *slog.Logger
}

// AuthService orchestrates the interactive sign-in flows on top of the session.
type AuthService struct {
	exchanger ports.CredentialExchanger
	sessions  *SessionManager
	logger    *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		exchanger: opts.Exchanger,
		sessions:  opts.Sessions,
		logger:    logger.With("component", "auth"),
	}
}

// Login exchanges credentials and installs the resulting tokens.
// A persistence failure is logged; the session still stands in memory.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return &domainauth.AuthError{Reason: domainauth.ReasonInvalidCredentials, Op: "login", Detail: "username and password are required"}
	}

	tokens, err := s.exchanger.Login(ctx, username, password)
	if err != nil {
		s.logger.WarnContext(ctx, "login rejected", "error", err)
		return fmt.Errorf("login: %w", err)
	}
	if tokens.IsZero() {
		return &domainauth.AuthError{Reason: domainauth.ReasonMissingToken, Op: "login"}
	}

	if err := s.sessions.SaveSession(ctx, &tokens); err != nil {
		s.logger.ErrorContext(ctx, "login session not persisted", "error", err)
	}
	s.logger.InfoContext(ctx, "login succeeded")
	return nil
}

// BeginSSO returns the identity-provider URL to send the browser to.
func (s *AuthService) BeginSSO(ctx context.Context) (string, error) {
	login, err := s.exchanger.SSOLoginURL(ctx)
	if err != nil {
		return "", fmt.Errorf("begin sso: %w", err)
	}
	return login.AuthURL, nil
}

// Logout clears the session and any cached identity.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// UserMessage maps an authentication error to the message shown to the operator.
// Transport failures never leak server detail.
func UserMessage(err error) string {
	var ae *domainauth.AuthError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return msgLoginFailed
	case errors.Is(err, domainauth.ErrTransport):
		return msgConnection
	case errors.Is(err, domainauth.ErrInvalidAuthorizationCode):
		if d := domainauth.DetailOf(err); d != "" {
			return d
		}
		return msgInvalidCode
	case errors.As(err, &ae) && ae.Reason == domainauth.ReasonMissingToken:
		if len(ae.Fields) == 0 {
			return msgMissingToken
		}
		return msgMissingToken + " (campos recibidos: " + strings.Join(ae.Fields, ", ") + ")"
	default:
		return msgUnexpected
	}
}

// SSOFailureMessage is UserMessage for the SSO flows; it prefers any server-provided detail over the generic message.
func SSOFailureMessage(err error) string {
	if d := domainauth.DetailOf(err); d != "" {
		return d
	}
	return UserMessage(err)
}
