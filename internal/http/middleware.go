package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so the first one is outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("req_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("req_id", RequestIDFromContext(r.Context())),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing a well-formed inbound one.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(setRequestID(r.Context(), id)))
		})
	}
}

// SessionSource is what the gate needs from the session.
type SessionSource interface {
	Snapshot() domainauth.Snapshot
	WaitReady(ctx context.Context) (domainauth.Snapshot, error)
	Logout(ctx context.Context) error
}

// GateOptions configures SessionGate.
type GateOptions struct {
	Sessions SessionSource
	Renderer *TemplateRenderer
	// Wait bounds how long a request blocks on readiness before the splash is served.
	Wait   time.Duration
	Logger *slog.Logger
}

func (o GateOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// SessionGate admits a request only once the session's role determination is final.
// Without tokens it clears any partial state and sends the caller to the login page.
// While derivation is pending it serves the splash page, never the protected content.
func SessionGate(opts GateOptions) Middleware {
	logger := opts.logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			snap := opts.Sessions.Snapshot()
			if !snap.Ready && opts.Wait > 0 {
				waitCtx, cancel := context.WithTimeout(ctx, opts.Wait)
				snap, _ = opts.Sessions.WaitReady(waitCtx)
				cancel()
			}

			switch {
			case snap.Ready && !snap.Authenticated:
				if err := opts.Sessions.Logout(ctx); err != nil {
					logger.WarnContext(ctx, "clearing session at gate failed", "error", err)
				}
				denyUnauthenticated(w, r)
			case !snap.Ready:
				logger.DebugContext(ctx, "session not ready; serving splash", "state", snap.State)
				serveSplash(w, r, opts.Renderer, snap)
			default:
				next.ServeHTTP(w, r.WithContext(SetSnapshotInContext(ctx, snap)))
			}
		})
	}
}

// RequireAdmin rejects gated requests whose session does not hold admin.
func RequireAdmin(renderer *TemplateRenderer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsAdminRequest(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}
			if wantsJSON(r) || renderer == nil {
				WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "insufficient_permissions"})
				return
			}
			renderer.RenderError(w, r, http.StatusForbidden, "No tiene permisos para acceder a esta página")
		})
	}
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required"})
		return
	}
	redirectToLogin(w, r)
}

func serveSplash(w http.ResponseWriter, r *http.Request, renderer *TemplateRenderer, snap domainauth.Snapshot) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	if wantsJSON(r) || renderer == nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":       "session_not_ready",
			"show_splash": snap.ShowSplash(),
		})
		return
	}
	data := newPageData(r, "Cargando")
	data.Session = snap
	data.Refresh = splashRefreshSeconds
	if err := renderer.Render(w, http.StatusOK, PageSplash, data); err != nil {
		http.Error(w, "Cargando sesión", http.StatusServiceUnavailable)
	}
}

// redirectToLogin sends the browser to the login page, remembering where it was going.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := PathLogin
	if back := safeRedirectPath(r.URL.RequestURI()); back != PathRoot {
		target += "?" + url.Values{"redirect_uri": {back}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeRedirectPath keeps redirects inside the app; anything else becomes "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return PathRoot
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || len(u.Path) == 0 || u.Path[0] != '/' {
		return PathRoot
	}
	if len(u.Path) > 1 && (u.Path[1] == '/' || u.Path[1] == '\\') {
		return PathRoot
	}
	return candidate
}
