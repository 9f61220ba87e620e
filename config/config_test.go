package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

// parseFrom parses AppConfig from an explicit environment, ignoring the process env.
func parseFrom(t *testing.T, vars map[string]string) (AppConfig, error) {
	t.Helper()
	var cfg AppConfig
	err := env.ParseWithOptions(&cfg, env.Options{Environment: vars})
	return cfg, err
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg, err := parseFrom(t, map[string]string{})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeBroker {
		t.Errorf("expected broker mode, got %q", cfg.Auth.Mode)
	}
	if cfg.Store.Backend != StoreBackendSQLite {
		t.Errorf("expected sqlite backend, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Scope != "mmk-console" {
		t.Errorf("expected default scope, got %q", cfg.Store.Scope)
	}
	if cfg.Session.DeriveTimeout != 5*time.Second || cfg.Session.GateWait != 3*time.Second {
		t.Errorf("unexpected session timing: %+v", cfg.Session)
	}
	if cfg.HTTP.Addr != "127.0.0.1:8080" {
		t.Errorf("expected loopback addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.RoleHints {
		t.Error("role hints should be off by default")
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	cfg, err := parseFrom(t, map[string]string{
		"AUTH_MODE":              "OIDC",
		"IDENTITY_API_URL":       "https://id.example.com/",
		"IDENTITY_API_CLIENT_ID": "console",
		"IDENTITY_API_TIMEOUT":   "10s",
		"OIDC_CLIENT_ID":         "app-client",
		"OIDC_CLIENT_SECRET":     "super-secret",
		"OIDC_REDIRECT_URL":      "https://app.example.com/auth/callback",
		"OIDC_DISCOVERY_URL":     "https://login.example.com/.well-known/openid-configuration",
		"OIDC_SCOPE":             "openid email",
		"OIDC_USE_ID_TOKEN":      "false",
		"DEV_AUTH_USERNAME":      "ana",
		"DEV_AUTH_PASSWORD":      "pw",
		"DEV_AUTH_USER_ID":       "42",
		"DEV_AUTH_EMAIL":         "ana@example.com",
		"DEV_AUTH_FIRST_NAME":    "Ana",
		"DEV_AUTH_LAST_NAME":     "Pérez",
		"DEV_AUTH_ADMIN":         "false",
		"DEV_AUTH_ROLE_ID":       "7",
		"DEV_AUTH_SIGNING_KEY":   "k",
		"DEV_AUTH_TOKEN_TTL":     "1h",
		"ROLE_HINTS_ENABLED":     "true",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	expected := AuthConfig{
		Mode: AuthModeOIDC,
		IdentityAPI: IdentityAPIConfig{
			URL:      "https://id.example.com",
			ClientID: "console",
			Timeout:  10 * time.Second,
		},
		OIDC: OIDCConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://app.example.com/auth/callback",
			Scope:        "openid email",
			DiscoveryURL: "https://login.example.com/.well-known/openid-configuration",
			UseIDToken:   false,
		},
		DevAuth: DevAuthConfig{
			Username:   "ana",
			Password:   "pw",
			UserID:     "42",
			Email:      "ana@example.com",
			FirstName:  "Ana",
			LastName:   "Pérez",
			Admin:      false,
			RoleID:     "7",
			SigningKey: "k",
			TokenTTL:   time.Hour,
		},
		RoleHints: true,
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_InvalidEnums(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{name: "auth mode", vars: map[string]string{"AUTH_MODE": "oauth"}, want: "invalid AuthMode"},
		{name: "store backend", vars: map[string]string{"STORE_BACKEND": "mysql"}, want: "invalid StoreBackend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFrom(t, tt.vars)
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestStoreConfig_ParseEnv(t *testing.T) {
	cfg, err := parseFrom(t, map[string]string{
		"STORE_BACKEND":       "redis",
		"STORE_SCOPE":         "  ops  ",
		"REDIS_URI":           "redis://cache:6379/2",
		"REDIS_CLUSTER_NODES": "a:7000,b:7001",
		"REDIS_USE_CLUSTER":   "true",
		"REDIS_TTL":           "-1s",
		"DB_HOST":             "pg",
		"DB_PASSWORD":         "p@ss/word",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Store.Backend != StoreBackendRedis {
		t.Errorf("expected redis backend, got %q", cfg.Store.Backend)
	}
	if cfg.Store.Scope != "ops" {
		t.Errorf("expected trimmed scope, got %q", cfg.Store.Scope)
	}
	if !reflect.DeepEqual(cfg.Store.Redis.ClusterNodes, []string{"a:7000", "b:7001"}) {
		t.Errorf("unexpected cluster nodes: %v", cfg.Store.Redis.ClusterNodes)
	}
	if cfg.Store.Redis.TTL != 0 {
		t.Errorf("negative TTL should clamp to zero, got %v", cfg.Store.Redis.TTL)
	}
	if got := cfg.Store.Postgres.ConnString(); got != "postgres://mmk:p%40ss%2Fword@pg:5432/mmk_console?sslmode=disable" {
		t.Errorf("unexpected conn string: %s", got)
	}
}

func TestDBConfig_ConnStringPrefersDSN(t *testing.T) {
	c := DBConfig{DSN: " postgres://u@h/db ", Host: "ignored"}
	if got := c.ConnString(); got != "postgres://u@h/db" {
		t.Errorf("unexpected conn string: %s", got)
	}
}

func TestSessionConfig_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   SessionConfig
		want SessionConfig
	}{
		{
			name: "zero derive timeout gets default",
			in:   SessionConfig{GateWait: time.Second},
			want: SessionConfig{DeriveTimeout: 5 * time.Second, GateWait: time.Second},
		},
		{
			name: "zero gate wait is kept",
			in:   SessionConfig{DeriveTimeout: time.Second},
			want: SessionConfig{DeriveTimeout: time.Second},
		},
		{
			name: "negative gate wait gets default",
			in:   SessionConfig{DeriveTimeout: time.Second, GateWait: -time.Second},
			want: SessionConfig{DeriveTimeout: time.Second, GateWait: 3 * time.Second},
		},
		{
			name: "gate wait is capped",
			in:   SessionConfig{DeriveTimeout: time.Second, GateWait: time.Hour},
			want: SessionConfig{DeriveTimeout: time.Second, GateWait: 30 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Sanitize()
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{LoginRateLimit: 0, LoginRateWindow: -time.Second}
	h.Sanitize()
	if h.LoginRateLimit != 1 || h.LoginRateWindow != time.Minute || h.ShutdownTimeout != 10*time.Second {
		t.Errorf("unexpected sanitized config: %+v", h)
	}
}

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN": slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := AppConfig{LogLevel: in}
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("LogLevel %q: expected %v, got %v", in, want, got)
		}
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	var cfg AppConfig
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Error("expected dev mode from NODE_ENV")
	}
}
