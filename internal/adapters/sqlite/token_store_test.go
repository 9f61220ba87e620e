package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/mmk-console/internal/domain/auth"
)

func openTestStore(t *testing.T, path, scope string) *TokenStore {
	t.Helper()
	store, err := Open(context.Background(), path, scope)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTokenStore_CRUD(t *testing.T) {
	store := openTestStore(t, filepath.Join(t.TempDir(), "console.db"), "console")
	ctx := context.Background()

	_, err := store.Get(ctx, "session")
	require.ErrorIs(t, err, domainauth.ErrNotFound)

	require.NoError(t, store.Set(ctx, "session", []byte(`{"api_token":"a"}`)))
	require.NoError(t, store.Set(ctx, "session", []byte(`{"api_token":"b"}`)))

	got, err := store.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, `{"api_token":"b"}`, string(got))

	require.NoError(t, store.Remove(ctx, "session"))
	_, err = store.Get(ctx, "session")
	assert.ErrorIs(t, err, domainauth.ErrNotFound)
	require.NoError(t, store.Remove(ctx, "session"))
}

func TestTokenStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "console.db")
	ctx := context.Background()

	first, err := Open(ctx, path, "console")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "session", []byte("persisted")))
	require.NoError(t, first.Close())

	second := openTestStore(t, path, "console")
	got, err := second.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestTokenStore_ScopesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.db")
	a := openTestStore(t, path, "a")
	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "session", []byte("from-a")))
	require.NoError(t, a.Close())

	b := openTestStore(t, path, "b")
	_, err := b.Get(ctx, "session")
	assert.ErrorIs(t, err, domainauth.ErrNotFound)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "", "console")
	assert.Error(t, err)
}
