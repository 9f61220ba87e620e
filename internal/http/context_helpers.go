package httpx

import (
	"context"

	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

// snapshotKey is an unexported context key type to avoid collisions across packages.
type snapshotKey struct{}

type requestIDKey struct{}

type csrfTokenKey struct{}

// SetSnapshotInContext returns a child context carrying the session snapshot the gate admitted.
func SetSnapshotInContext(ctx context.Context, snap domainauth.Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, snap)
}

// SnapshotFromContext returns the gated session snapshot and whether one is present.
func SnapshotFromContext(ctx context.Context) (domainauth.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotKey{}).(domainauth.Snapshot)
	return snap, ok
}

// IsAdminRequest reports whether the gated session on ctx holds admin.
func IsAdminRequest(ctx context.Context) bool {
	snap, ok := SnapshotFromContext(ctx)
	return ok && snap.Ready && snap.Admin
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func setCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfTokenKey{}, token)
}

// CSRFTokenFromContext returns the token forms must echo back, or "".
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfTokenKey{}).(string)
	return token
}
