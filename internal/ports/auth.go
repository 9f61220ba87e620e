// Package ports defines interfaces (hexagonal ports) for the session core's collaborators.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

// CredentialExchanger performs the token-acquisition protocols against the identity service.
// Implementations are stateless request/response clients and never retry.
type CredentialExchanger interface {
	// Login exchanges resource-owner credentials for a token bundle.
	Login(ctx context.Context, username, password string) (domainauth.TokenBundle, error)

	// SSOLoginURL fetches the identity-provider redirect target.
	SSOLoginURL(ctx context.Context) (domainauth.SSOLogin, error)

	// ExchangeSSOCode exchanges an authorization code for a normalized token bundle.
	ExchangeSSOCode(ctx context.Context, code string) (domainauth.SSOExchange, error)
}

// RoleHintLookup resolves the secondary role signal for an email address.
type RoleHintLookup interface {
	LookupRole(ctx context.Context, email string) (domainauth.RoleHint, error)
}

// TokenStore is the durable scoped key-value store holding the session.
// Get returns domainauth.ErrNotFound when the key is absent.
type TokenStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
