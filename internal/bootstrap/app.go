package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/mmk-console/config"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
	httpx "github.com/target/mmk-console/internal/http"
	"github.com/target/mmk-console/internal/service"
)

// AppDeps contains everything NewApp needs.
type AppDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// Exchanger overrides the configured exchanger when set.
	Exchanger *Exchanger
}

// App is the wired console: one session, its store and the HTTP handler in front of it.
type App struct {
	Sessions *service.SessionManager
	Handler  http.Handler

	store  Store
	logger *slog.Logger
}

// NewApp opens the store, builds the exchanger and wires the router. The session is not
// restored yet; call Start.
func NewApp(ctx context.Context, deps AppDeps) (*App, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
		cfg.Sanitize()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var ex Exchanger
	if deps.Exchanger != nil {
		ex = *deps.Exchanger
	} else {
		var err error
		ex, err = BuildExchanger(ctx, ExchangerConfig{Auth: cfg.Auth, CallbackPath: httpx.PathCallback, Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	store, err := OpenStore(ctx, StoreConfig{Store: cfg.Store, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	sessions := service.NewSessionManager(service.SessionManagerOptions{
		Store:         store,
		RoleHints:     ex.RoleHints,
		DeriveTimeout: cfg.Session.DeriveTimeout,
		Logger:        logger,
	})

	handler, err := httpx.NewRouter(httpx.RouterServices{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Exchanger: ex.Credentials,
			Sessions:  sessions,
			Logger:    logger,
		}),
		Callback: service.NewSSOCallbackCoordinator(service.SSOCallbackCoordinatorOptions{
			Exchanger:  ex.Credentials,
			Sessions:   sessions,
			SuccessURL: httpx.PathRoot,
			Logger:     logger,
		}),
		Sessions: sessions,
		GateWait: cfg.Session.GateWait,
		LoginLimit: httpx.RateLimitConfig{
			RequestsPerWindow: cfg.HTTP.LoginRateLimit,
			Window:            cfg.HTTP.LoginRateWindow,
			Burst:             cfg.HTTP.LoginRateLimit,
		},
		Logger: logger,
	})
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close session store after router failure", "error", cerr)
		}
		return nil, fmt.Errorf("build router: %w", err)
	}

	return &App{Sessions: sessions, Handler: handler, store: store, logger: logger}, nil
}

// Start restores the persisted session and logs every committed transition.
// It returns once restoration has begun; role derivation continues in the background.
func (a *App) Start(ctx context.Context) error {
	a.Sessions.Subscribe(func(s domainauth.Snapshot) {
		a.logger.Info("session changed",
			"state", s.State,
			"generation", s.Generation,
			"ready", s.Ready,
			"admin", s.Admin,
		)
	})
	if err := a.Sessions.Restore(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return nil
}

// Close waits for in-flight derivations and releases the store.
func (a *App) Close() error {
	a.Sessions.Wait()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close session store: %w", err)
	}
	return nil
}
