package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

func openTestStore(t *testing.T, namespace string) *Store {
	t.Helper()

	s, err := Open(context.Background(), Config{
		Path:      filepath.Join(t.TempDir(), "nested", "quotes.db"),
		Namespace: namespace,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	_, err := s.Get(ctx, "quotes")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "quotes", "[]"))
	require.NoError(t, s.Set(ctx, "quotes", `[{"text":"a","category":"b"}]`))

	got, err := s.Get(ctx, "quotes")
	require.NoError(t, err)
	assert.Equal(t, `[{"text":"a","category":"b"}]`, got)

	require.NoError(t, s.Delete(ctx, "quotes"))
	require.NoError(t, s.Delete(ctx, "quotes"))

	_, err = s.Get(ctx, "quotes")
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quotes.db")

	first, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "lastSync", "1700000000000"))
	require.NoError(t, first.Close())

	second, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)

	t.Cleanup(func() { _ = second.Close() })

	got, err := second.Get(ctx, "lastSync")
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", got)
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quotes.db")

	a, err := Open(ctx, Config{Path: path, Namespace: "a"})
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "searchText", "alpha"))
	require.NoError(t, a.Close())

	b, err := Open(ctx, Config{Path: path, Namespace: "b"})
	require.NoError(t, err)

	t.Cleanup(func() { _ = b.Close() })

	_, err = b.Get(ctx, "searchText")
	assert.True(t, domain.IsNotFound(err))
}

func TestStore_ClosedDatabaseReturnsStorageError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, "")

	require.NoError(t, s.Close())

	err := s.Set(ctx, "quotes", "[]")
	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))

	_, err = s.Get(ctx, "quotes")
	assert.True(t, domain.IsStorage(err))
}

func TestStore_Health(t *testing.T) {
	s := openTestStore(t, "")

	assert.Equal(t, Name, s.Name())
	require.NoError(t, s.Check(context.Background()))
}
