package httpx

// Page identifiers used as template names.
const (
	PageLogin  = "login"
	PageError  = "error"
	PageSplash = "splash"
	PageHome   = "home"
	PageAdmin  = "admin"
)

// Application paths referenced by handlers and redirects.
const (
	PathLogin    = "/login"
	PathRoot     = "/"
	PathSSO      = "/auth/sso"
	PathCallback = "/auth/callback"
	PathLogout   = "/auth/logout"
	PathStatus   = "/auth/status"
	PathAdmin    = "/admin"
	PathHealth   = "/healthz"
)

// splashRefreshSeconds is how often the splash page reloads while the session is not ready.
const splashRefreshSeconds = 1
