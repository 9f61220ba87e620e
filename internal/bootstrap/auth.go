package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/mmk-console/config"
	"github.com/target/mmk-console/internal/adapters/devauth"
	"github.com/target/mmk-console/internal/adapters/identityapi"
	"github.com/target/mmk-console/internal/adapters/oidc"
	"github.com/target/mmk-console/internal/ports"
)

// ExchangerConfig contains configuration for the credential exchanger.
type ExchangerConfig struct {
	Auth config.AuthConfig
	// CallbackPath is where SSO codes land; dev auth redirects straight to it.
	CallbackPath string
	HTTPClient   *http.Client // Optional
	Logger       *slog.Logger
}

// Exchanger bundles the selected exchanger with its optional role-hint lookup.
type Exchanger struct {
	Credentials ports.CredentialExchanger
	// RoleHints is nil unless hints are enabled and the mode supports them.
	RoleHints ports.RoleHintLookup
}

// BuildExchanger creates the credential exchanger for the configured auth mode.
func BuildExchanger(ctx context.Context, cfg ExchangerConfig) (Exchanger, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Auth.IdentityAPI.Timeout}
	}

	switch cfg.Auth.Mode {
	case config.AuthModeBroker, "":
		return buildBrokerExchanger(cfg, httpClient, logger)
	case config.AuthModeOIDC:
		return buildOIDCExchanger(ctx, cfg, httpClient, logger)
	case config.AuthModeMock:
		return buildDevExchanger(cfg, logger)
	default:
		return Exchanger{}, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildBrokerExchanger(cfg ExchangerConfig, httpClient *http.Client, logger *slog.Logger) (Exchanger, error) {
	client, err := identityapi.NewClient(identityapi.Config{
		BaseURL:    cfg.Auth.IdentityAPI.URL,
		ClientID:   cfg.Auth.IdentityAPI.ClientID,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return Exchanger{}, fmt.Errorf("build identity API client: %w", err)
	}
	ex := Exchanger{Credentials: client}
	if cfg.Auth.RoleHints {
		ex.RoleHints = client
	}
	logger.Info("credential exchanger ready", "mode", config.AuthModeBroker, "base_url", cfg.Auth.IdentityAPI.URL, "role_hints", cfg.Auth.RoleHints)
	return ex, nil
}

func buildOIDCExchanger(ctx context.Context, cfg ExchangerConfig, httpClient *http.Client, logger *slog.Logger) (Exchanger, error) {
	o := cfg.Auth.OIDC
	if o.DiscoveryURL == "" || o.ClientID == "" {
		return Exchanger{}, errors.New("oidc mode requires OIDC_DISCOVERY_URL and OIDC_CLIENT_ID")
	}
	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURL,
		Scope:        o.Scope,
		DiscoveryURL: o.DiscoveryURL,
		UseIDToken:   o.UseIDToken,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	if err != nil {
		return Exchanger{}, fmt.Errorf("build oidc provider: %w", err)
	}
	if cfg.Auth.RoleHints {
		logger.Warn("role hints are not available in oidc mode; claims alone decide admin")
	}
	logger.Info("credential exchanger ready", "mode", config.AuthModeOIDC, "discovery_url", o.DiscoveryURL)
	return Exchanger{Credentials: prov}, nil
}

func buildDevExchanger(cfg ExchangerConfig, logger *slog.Logger) (Exchanger, error) {
	d := cfg.Auth.DevAuth
	prov, err := devauth.NewProvider(devauth.Config{
		Username:     d.Username,
		Password:     d.Password,
		UserID:       d.UserID,
		Email:        d.Email,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Admin:        d.Admin,
		RoleID:       d.RoleID,
		SigningKey:   d.SigningKey,
		TokenTTL:     d.TokenTTL,
		CallbackPath: cfg.CallbackPath,
	})
	if err != nil {
		return Exchanger{}, fmt.Errorf("build dev auth provider: %w", err)
	}
	ex := Exchanger{Credentials: prov}
	if cfg.Auth.RoleHints {
		ex.RoleHints = prov
	}
	logger.Warn("dev auth enabled; do not use in production", "username", d.Username, "admin", d.Admin)
	return ex, nil
}
