package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/uopsim/pkg/db"
)

func TestKVStore(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{
			name: "basic_put_get",
			fn:   testBasicPutGet,
		},
		{
			name: "delete_operations",
			fn:   testDelete,
		},
		{
			name: "store_closure",
			fn:   testStoreClosure,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}
}

func TestKVStoreOnDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := NewKVStore(WithPath(dir), WithCacheSize(1))
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte("window/0"), []byte{1, 2, 3}))
	require.NoError(t, store.Close())

	reopened, err := NewKVStore(WithPath(dir))
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	v, err := reopened.Get([]byte("window/0"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, v)
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("core-0/window-0")
	value := []byte("records")

	require.NoError(t, store.Put(key, value))

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	_, err = store.Get([]byte("core-0/window-9"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func testDelete(t *testing.T, store db.KVStore) {
	key := []byte("core-1/window-0")

	require.NoError(t, store.Put(key, []byte("stale")))
	require.NoError(t, store.Delete(key))

	_, err := store.Get(key)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete([]byte("missing")))
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrClosed)

	err = store.Put([]byte("key"), []byte("value"))
	assert.ErrorIs(t, err, ErrClosed)

	err = store.Delete([]byte("key"))
	assert.ErrorIs(t, err, ErrClosed)

	_, err = store.NewIterator(nil, nil)
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, store.Close())
}
