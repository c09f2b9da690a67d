package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBoltStore(t *testing.T) Store {
	t.Helper()
	store, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreImplementations(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"bolt":   newBoltStore,
		"memory": func(t *testing.T) Store { return NewMemStore() },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("missing key", func(t *testing.T) {
				store := newStore(t)
				var out string
				found, err := store.Get("absent", &out)
				require.NoError(t, err)
				assert.False(t, found)
			})

			t.Run("set get round trip", func(t *testing.T) {
				store := newStore(t)
				value := map[string]string{"res_mysql_vip": "ocf:heartbeat:IPaddr2"}
				require.NoError(t, store.Set("local-data.resources", value))

				out := map[string]string{}
				found, err := store.Get("local-data.resources", &out)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, value, out)
			})

			t.Run("overwrite", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Set("key", "first"))
				require.NoError(t, store.Set("key", "second"))

				var out string
				found, err := store.Get("key", &out)
				require.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, "second", out)
			})

			t.Run("delete", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Set("key", "value"))
				require.NoError(t, store.Delete("key"))

				var out string
				found, err := store.Get("key", &out)
				require.NoError(t, err)
				assert.False(t, found)

				// Deleting again is a no-op.
				require.NoError(t, store.Delete("key"))
			})

			t.Run("keys", func(t *testing.T) {
				store := newStore(t)
				require.NoError(t, store.Set("b", 1))
				require.NoError(t, store.Set("a", 2))

				keys, err := store.Keys()
				require.NoError(t, err)
				assert.Equal(t, []string{"a", "b"}, keys)
			})
		})
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("key", "value"))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	var out string
	found, err := reopened.Get("key", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", out)
}
