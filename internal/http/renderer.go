package httpx

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

//go:embed views/*.tmpl
var viewsFS embed.FS

// PageData is the model every page template receives.
type PageData struct {
	Title       string
	CurrentPage string
	Session     domainauth.Snapshot
	// Error is a user-facing message; empty on success paths.
	Error       string
	RedirectURI string
	RecoveryURL string
	Refresh     int
	RequestID   string
	CSRFToken   string
}

// newPageData seeds the request-scoped fields of a page model.
func newPageData(r *http.Request, title string) PageData {
	ctx := r.Context()
	return PageData{Title: title, RequestID: RequestIDFromContext(ctx), CSRFToken: CSRFTokenFromContext(ctx)}
}

// TemplateRenderer renders the embedded page templates.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := template.New("root").Funcs(templateFuncs()).ParseFS(viewsFS, "views/*.tmpl")
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err))
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// Render executes the named page into a buffer and writes it with status.
// Nothing is written when execution fails.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	if data.CurrentPage == "" {
		data.CurrentPage = page
	}
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, page, data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", page), slog.Any("error", err))
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template", slog.String("template", page), slog.Any("error", err))
		return err
	}
	return nil
}

// RenderError renders the error page with the single recovery action.
func (r *TemplateRenderer) RenderError(w http.ResponseWriter, req *http.Request, status int, message string) {
	data := newPageData(req, "Error")
	data.Error = message
	data.RecoveryURL = PathLogin
	if err := r.Render(w, status, PageError, data); err != nil {
		http.Error(w, message, status)
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"displayName": displayName,
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		},
	}
}

// displayName picks the friendliest label for the signed-in user.
func displayName(id *domainauth.Identity) string {
	switch {
	case id == nil:
		return ""
	case id.FirstName != "" && id.LastName != "":
		return id.FirstName + " " + id.LastName
	case id.FirstName != "":
		return id.FirstName
	case id.Username != "":
		return id.Username
	default:
		return id.Email
	}
}
