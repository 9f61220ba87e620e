// Package auth contains domain-level types for authentication and the client session.
// It is pure and free of framework/adapter concerns.
package auth

import "time"

// TokenBundle is the canonical token pair issued by the identity service.
// Adapters normalize provider-specific response shapes into this type.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

// IsZero reports whether the bundle carries no access token.
func (t TokenBundle) IsZero() bool { return t.AccessToken == "" }

// Equal compares the token pair; TokenType is informational and ignored.
func (t TokenBundle) Equal(o TokenBundle) bool {
	return t.AccessToken == o.AccessToken && t.RefreshToken == o.RefreshToken
}

// Identity is the display record for the authenticated user.
// Missing name fields are empty strings, never absent.
type Identity struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SSOLogin is the identity-provider redirect target returned by the broker.
type SSOLogin struct {
	AuthURL string
	Message string
}

// SSOExchange is the normalized result of an authorization-code exchange.
// UserInfo is nil when the provider did not return one.
type SSOExchange struct {
	Tokens   TokenBundle
	UserInfo *Identity
}

// RoleHint is the secondary role signal looked up by email.
type RoleHint struct {
	ID    string
	Email string
	Admin bool
}

// State is the lifecycle state of the client session.
type State string

const (
	// StateUninitialized is the state before Restore has run.
	StateUninitialized State = "uninitialized"
	// StateRestoring means tokens are present and role derivation has not committed yet.
	StateRestoring State = "restoring"
	// StateAuthenticated means tokens are present and the role determination is final.
	StateAuthenticated State = "authenticated"
	// StateUnauthenticated means no tokens are held.
	StateUnauthenticated State = "unauthenticated"
)

// Snapshot is an immutable view of the session handed to consumers.
type Snapshot struct {
	State         State
	Authenticated bool
	Admin         bool
	Ready         bool
	Identity      *Identity
	Generation    uint64
	// TokenExpiresAt is the access token "exp" claim when it could be decoded.
	TokenExpiresAt time.Time
}

// ShowSplash reports whether consumers should keep showing the loading splash.
func (s Snapshot) ShowSplash() bool { return !s.Ready }
