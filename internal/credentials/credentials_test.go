package credentials

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "credentials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestStores(t *testing.T) {
	stores := map[string]func(t *testing.T) service.CredentialStore{
		"sqlite": func(t *testing.T) service.CredentialStore { return newTestStore(t) },
		"memory": func(_ *testing.T) service.CredentialStore { return NewMemoryStore("") },
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := build(t)

			token, err := store.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token, "fresh store has no token")

			require.NoError(t, store.SetToken(ctx, "first"))
			require.NoError(t, store.SetToken(ctx, "second"))
			token, err = store.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "second", token)

			require.ErrorIs(t, store.SetToken(ctx, "  "), ErrEmptyString)

			require.NoError(t, store.ClearToken(ctx))
			require.NoError(t, store.ClearToken(ctx))
			token, err = store.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, token)
		})
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.SetToken(ctx, "persisted"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(ctx), "migrating twice is a no-op")

	token, err := reopened.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", token)
	assert.Equal(t, path, reopened.Path())
}

func TestNewSQLiteStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	require.ErrorIs(t, err, ErrEmptyString)
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("")
	src := TokenSource(ctx, store)

	_, err := src.Token()
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	require.NoError(t, store.SetToken(ctx, "abc123"))
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
}
