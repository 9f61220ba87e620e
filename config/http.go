package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to. The console serves one operator,
	// so it listens on loopback by default.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// LoginRateLimit is the number of login attempts allowed per LoginRateWindow
	// for one client and username.
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT"  envDefault:"5"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
	if h.LoginRateLimit < 1 {
		h.LoginRateLimit = 1
	}
	if h.LoginRateWindow <= 0 {
		h.LoginRateWindow = time.Minute
	}
}
