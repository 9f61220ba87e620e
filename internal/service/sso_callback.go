package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
	"github.com/target/mmk-console/internal/ports"
	"golang.org/x/sync/singleflight"
)

// RecoveryURL is the single recovery action offered on a failed callback.
const RecoveryURL = "/login"

const (
	msgCallbackDenied = "Error de autenticación: "
	msgNoCode         = "No se recibió código de autorización"
)

// CallbackError is a user-facing callback failure.
type CallbackError struct {
	Message string
	Cause   error
}

func (e *CallbackError) Error() string { return e.Message }

func (e *CallbackError) Unwrap() error { return e.Cause }

// CallbackOutcome is either a redirect target or an error to render.
type CallbackOutcome struct {
	RedirectTo string
	Err        *CallbackError
}

// OK reports whether the callback completed the sign-in.
func (o CallbackOutcome) OK() bool { return o.Err == nil }

// SSOCallbackCoordinatorOptions groups dependencies for SSOCallbackCoordinator.
type SSOCallbackCoordinatorOptions struct {
	Exchanger ports.CredentialExchanger
	Sessions  *SessionManager
	// SuccessURL is where a completed sign-in lands. Defaults to "/".
	SuccessURL string
	Logger     *slog.Logger
}

// SSOCallbackCoordinator completes the SSO flow when the browser lands on the callback address.
type SSOCallbackCoordinator struct {
	exchanger  ports.CredentialExchanger
	sessions   *SessionManager
	successURL string
	logger     *slog.Logger

	group singleflight.Group
}

// NewSSOCallbackCoordinator constructs a coordinator.
func NewSSOCallbackCoordinator(opts SSOCallbackCoordinatorOptions) *SSOCallbackCoordinator {
	success := opts.SuccessURL
	if success == "" {
		success = "/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SSOCallbackCoordinator{
		exchanger:  opts.Exchanger,
		sessions:   opts.Sessions,
		successURL: success,
		logger:     logger.With("component", "sso_callback"),
	}
}

// Handle processes the callback query parameters.
//
// Deliveries of the same parameters that overlap in time share one exchange. Nothing is kept
// once it completes: a later request carrying a spent code reaches the exchanger and fails there.
func (c *SSOCallbackCoordinator) Handle(ctx context.Context, params url.Values) CallbackOutcome {
	// The exchange outlives a single caller so that every sharer sees its result.
	v, _, shared := c.group.Do(callbackKey(params), func() (any, error) {
		return c.process(context.WithoutCancel(ctx), params), nil
	})
	if shared {
		c.logger.DebugContext(ctx, "joined in-flight callback")
	}
	return v.(CallbackOutcome)
}

func (c *SSOCallbackCoordinator) process(ctx context.Context, params url.Values) CallbackOutcome {
	code := strings.TrimSpace(params.Get("code"))
	if code == "" {
		if e := params.Get("error"); e != "" {
			msg := msgCallbackDenied + e
			if desc := params.Get("error_description"); desc != "" {
				msg += " - " + desc
			}
			c.logger.WarnContext(ctx, "identity provider returned an error", "error_code", e)
			return failure(msg, nil)
		}
		c.logger.WarnContext(ctx, "callback without authorization code")
		return failure(msgNoCode, nil)
	}

	ex, err := c.exchanger.ExchangeSSOCode(ctx, code)
	if err != nil {
		c.logger.WarnContext(ctx, "sso code exchange failed", "error", err)
		return failure(SSOFailureMessage(err), err)
	}

	if ex.Tokens.IsZero() {
		err := &domainauth.AuthError{Reason: domainauth.ReasonMissingToken, Op: "exchange sso code"}
		return failure(UserMessage(err), err)
	}

	if err := c.sessions.SaveSession(ctx, &ex.Tokens, WithIdentity(ex.UserInfo)); err != nil {
		// Committed in memory; only persistence failed.
		c.logger.ErrorContext(ctx, "sso session not persisted", "error", err)
	}

	c.logger.InfoContext(ctx, "sso sign-in completed", "user_info", ex.UserInfo != nil)
	return CallbackOutcome{RedirectTo: c.successURL}
}

func failure(msg string, cause error) CallbackOutcome {
	return CallbackOutcome{Err: &CallbackError{Message: msg, Cause: cause}}
}

// callbackKey identifies a callback by the parameters that drive it.
func callbackKey(params url.Values) string {
	keyed := url.Values{}
	for _, k := range []string{"code", "error", "error_description"} {
		if v, ok := params[k]; ok {
			keyed[k] = v
		}
	}
	return keyed.Encode()
}
