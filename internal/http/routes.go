package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth     AuthServiceInterface
	Callback CallbackCoordinator
	Sessions SessionSource
	// Renderer is optional; the embedded templates are parsed when nil.
	Renderer *TemplateRenderer
	// GateWait bounds how long a protected request waits for role derivation.
	GateWait time.Duration
	// LoginLimit throttles credential submission. Zero means LoginLimit.
	LoginLimit RateLimitConfig
	Logger     *slog.Logger
}

// NewRouter creates the console router wrapped in Recover, RequestID, Logging and CSRF protection.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := services.Renderer
	if renderer == nil {
		var err error
		if renderer, err = NewTemplateRenderer(logger); err != nil {
			return nil, fmt.Errorf("build renderer: %w", err)
		}
	}
	limit := services.LoginLimit
	if limit.RequestsPerWindow <= 0 || limit.Window <= 0 {
		limit = LoginLimit
	}

	authHandlers := &AuthHandlers{
		Svc:      services.Auth,
		Callback: services.Callback,
		Sessions: services.Sessions,
		Renderer: renderer,
		Logger:   logger,
	}
	ui := &UIHandlers{Renderer: renderer}
	gate := SessionGate(GateOptions{
		Sessions: services.Sessions,
		Renderer: renderer,
		Wait:     services.GateWait,
		Logger:   logger,
	})

	mux := http.NewServeMux()
	registerAuthRoutes(mux, authHandlers, RateLimit(limit, ClientAndUsernameKey, logger))
	mux.Handle("GET /{$}", gate(http.HandlerFunc(ui.Home)))
	mux.Handle("GET "+PathAdmin, Chain(http.HandlerFunc(ui.Admin), gate, RequireAdmin(renderer)))
	mux.Handle("GET "+PathHealth, healthHandler(services.Sessions))
	mux.Handle("HEAD "+PathHealth, healthHandler(services.Sessions))

	return Chain(mux, Recover(logger), RequestID(), Logging(logger), CSRFProtection(CSRFConfig{})), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, limit Middleware) {
	mux.HandleFunc("GET "+PathLogin, h.LoginPage)
	mux.Handle("POST "+PathLogin, limit(http.HandlerFunc(h.LoginSubmit)))
	mux.HandleFunc("GET "+PathSSO, h.BeginSSO)
	mux.HandleFunc("GET "+PathCallback, h.Callback)
	mux.HandleFunc("POST "+PathLogout, h.Logout)
	mux.HandleFunc("GET "+PathStatus, h.Status)
}
