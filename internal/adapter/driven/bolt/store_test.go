package bolt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_PutGetReplace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, driven.CollectionResources, "res-1", []byte(`{"v":1}`)))
	require.NoError(t, store.Put(ctx, driven.CollectionResources, "res-1", []byte(`{"v":2}`)))

	got, err := store.Get(ctx, driven.CollectionResources, "res-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))
}

func TestStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Get(context.Background(), driven.CollectionBookings, "book-x")
	assert.ErrorIs(t, err, driven.ErrDocumentNotFound)
}

func TestStore_ListKeyOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, driven.CollectionCosts, "cost-2", []byte(`2`)))
	require.NoError(t, store.Put(ctx, driven.CollectionCosts, "cost-1", []byte(`1`)))

	docs, err := store.List(ctx, driven.CollectionCosts)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "1", string(docs[0]))
	assert.Equal(t, "2", string(docs[1]))
}

func TestStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, driven.CollectionCredentials, "cred-1", []byte(`{}`)))
	require.NoError(t, store.Delete(ctx, driven.CollectionCredentials, "cred-1"))

	err := store.Delete(ctx, driven.CollectionCredentials, "cred-1")
	assert.ErrorIs(t, err, driven.ErrDocumentNotFound)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, driven.CollectionQuotas, "global:cost", []byte(`{"limit":5}`)))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, driven.CollectionQuotas, "global:cost")
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":5}`, string(got))
}

func TestStore_CancelledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, driven.CollectionResources, "res-1", []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}
