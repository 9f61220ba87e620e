package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) error
	BeginSSO(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
}

// CallbackCoordinator completes an SSO callback from its query parameters.
type CallbackCoordinator interface {
	Handle(ctx context.Context, params url.Values) service.CallbackOutcome
}

// SessionReader exposes the current session snapshot.
type SessionReader interface {
	Snapshot() domainauth.Snapshot
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc      AuthServiceInterface
	Callback CallbackCoordinator
	Sessions SessionReader
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// LoginPage renders the login form.
// GET /login?redirect_uri=<optional>.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	if h.Sessions.Snapshot().Authenticated {
		http.Redirect(w, r, redirectURI, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, redirectURI, "")
}

// LoginSubmit exchanges the submitted credentials.
// POST /login.
func (h *AuthHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form"})
		return
	}
	redirectURI := safeRedirectPath(r.PostFormValue("redirect_uri"))

	err := h.Svc.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		status := loginFailureStatus(err)
		msg := service.UserMessage(err)
		h.logger().InfoContext(r.Context(), "login failed",
			"req_id", RequestIDFromContext(r.Context()), "status", status)
		if wantsJSON(r) {
			WriteError(w, ErrorParams{Code: status, ErrCode: "login_failed", Message: msg})
			return
		}
		h.renderLogin(w, r, status, redirectURI, msg)
		return
	}

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": redirectURI})
		return
	}
	http.Redirect(w, r, redirectURI, http.StatusSeeOther)
}

// BeginSSO sends the browser to the identity provider.
// GET /auth/sso.
func (h *AuthHandlers) BeginSSO(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.Svc.BeginSSO(r.Context())
	if err != nil {
		h.logger().WarnContext(r.Context(), "begin sso failed",
			"req_id", RequestIDFromContext(r.Context()), "error", err)
		h.Renderer.RenderError(w, r, http.StatusBadGateway, service.SSOFailureMessage(err))
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes the SSO flow.
// GET /auth/callback?code=<code> or ?error=<code>&error_description=<text>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	out := h.Callback.Handle(r.Context(), r.URL.Query())
	if out.OK() {
		http.Redirect(w, r, out.RedirectTo, http.StatusFound)
		return
	}
	h.Renderer.RenderError(w, r, http.StatusBadRequest, out.Err.Message)
}

// Logout clears the session.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context()); err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": PathLogin})
		return
	}
	http.Redirect(w, r, PathLogin, http.StatusSeeOther)
}

// statusResponse is the JSON view of a session snapshot.
type statusResponse struct {
	State          domainauth.State     `json:"state"`
	Authenticated  bool                 `json:"authenticated"`
	Admin          bool                 `json:"admin"`
	Ready          bool                 `json:"ready"`
	ShowSplash     bool                 `json:"show_splash"`
	Generation     uint64               `json:"generation"`
	Identity       *domainauth.Identity `json:"identity,omitempty"`
	TokenExpiresAt *time.Time           `json:"token_expires_at,omitempty"`
}

func newStatusResponse(snap domainauth.Snapshot) statusResponse {
	resp := statusResponse{
		State:         snap.State,
		Authenticated: snap.Authenticated,
		Admin:         snap.Admin,
		Ready:         snap.Ready,
		ShowSplash:    snap.ShowSplash(),
		Generation:    snap.Generation,
		Identity:      snap.Identity,
	}
	if !snap.TokenExpiresAt.IsZero() {
		exp := snap.TokenExpiresAt.UTC()
		resp.TokenExpiresAt = &exp
	}
	return resp
}

// Status returns the current session as JSON.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, newStatusResponse(h.Sessions.Snapshot()))
}

func (h *AuthHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, redirectURI, msg string) {
	data := newPageData(r, "Iniciar sesión")
	data.Error = msg
	data.RedirectURI = redirectURI
	if err := h.Renderer.Render(w, status, PageLogin, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func loginFailureStatus(err error) int {
	switch {
	case errors.Is(err, domainauth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domainauth.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
