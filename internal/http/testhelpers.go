package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	mockauth "github.com/target/mmk-console/internal/mocks/auth"
	"github.com/target/mmk-console/internal/ports"
	"github.com/target/mmk-console/internal/service"
)

// RequireTemplateRenderer creates a TemplateRenderer for tests, failing the test if the
// embedded templates do not parse.
func RequireTemplateRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	tr, err := NewTemplateRenderer(slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	return tr
}

// TestConsoleOptions tweaks NewTestConsole.
type TestConsoleOptions struct {
	Exchanger *mockauth.MockExchanger
	RoleHints ports.RoleHintLookup
	GateWait  time.Duration
	Limit     RateLimitConfig
}

// TestConsole is a fully wired router backed by in-memory doubles.
type TestConsole struct {
	Handler   http.Handler
	Sessions  *service.SessionManager
	Store     *mockauth.MemoryTokenStore
	Exchanger *mockauth.MockExchanger
}

// NewTestConsole builds the router over a restored, empty session.
func NewTestConsole(t *testing.T, opts TestConsoleOptions) *TestConsole {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	if opts.Exchanger == nil {
		opts.Exchanger = mockauth.NewMockExchanger()
	}
	if opts.GateWait == 0 {
		opts.GateWait = 2 * time.Second
	}

	store := mockauth.NewMemoryTokenStore()
	sessions := service.NewSessionManager(service.SessionManagerOptions{
		Store:     store,
		RoleHints: opts.RoleHints,
		Logger:    logger,
	})
	t.Cleanup(sessions.Wait)
	if err := sessions.Restore(context.Background()); err != nil {
		t.Fatalf("restore session: %v", err)
	}

	handler, err := NewRouter(RouterServices{
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Exchanger: opts.Exchanger,
			Sessions:  sessions,
			Logger:    logger,
		}),
		Callback: service.NewSSOCallbackCoordinator(service.SSOCallbackCoordinatorOptions{
			Exchanger: opts.Exchanger,
			Sessions:  sessions,
			Logger:    logger,
		}),
		Sessions:   sessions,
		Renderer:   RequireTemplateRenderer(t),
		GateWait:   opts.GateWait,
		LoginLimit: opts.Limit,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &TestConsole{Handler: handler, Sessions: sessions, Store: store, Exchanger: opts.Exchanger}
}

// TestCSRFToken is the token Do and PostForm present on state-changing requests.
const TestCSRFToken = "test-csrf-token"

// Do serves a request and returns the recorder. A state-changing request without a
// CSRF cookie gets the test token as both cookie and header.
func (c *TestConsole) Do(req *http.Request) *httptest.ResponseRecorder {
	if requiresCSRFValidation(req.Method) {
		if _, err := req.Cookie(DefaultCSRFCookieName); err != nil {
			req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: TestCSRFToken})
			req.Header.Set(DefaultCSRFHeaderName, TestCSRFToken)
		}
	}
	rec := httptest.NewRecorder()
	c.Handler.ServeHTTP(rec, req)
	return rec
}

// Get serves a browser GET.
func (c *TestConsole) Get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "text/html")
	return c.Do(req)
}

// PostForm serves a browser form POST carrying the CSRF token as a form field.
func (c *TestConsole) PostForm(target string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set(DefaultCSRFCookieName, TestCSRFToken)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: TestCSRFToken})
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return c.Do(req)
}
