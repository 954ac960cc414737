package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// tickingClock advances one second per call so creation order is unambiguous.
func tickingClock() func() time.Time {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func TestNewRegistryRequiresRepository(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(newStore(t), WithClock(tickingClock()))
	require.NoError(t, err)

	id, err := reg.Create(ctx, Config{
		Backend:  core.BackendDocumentStore,
		Location: core.Location{Database: "buu", Collection: "faq"},
		Files:    []string{"faq.csv"},
	})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "session ids are uuids")

	s, err := reg.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.BackendDocumentStore, s.Backend)
	assert.Equal(t, "buu/faq", s.Collection())
	assert.Equal(t, []string{"faq.csv"}, s.Files)
}

func TestCreateValidates(t *testing.T) {
	reg, err := NewRegistry(newStore(t))
	require.NoError(t, err)

	_, err = reg.Create(context.Background(), Config{Backend: core.BackendVectorIndex})
	assert.ErrorIs(t, err, core.ErrMissingLocation)

	_, err = reg.Create(context.Background(), Config{Backend: "pinecone-v2", Location: core.Location{Index: "x"}})
	assert.ErrorIs(t, err, core.ErrUnknownBackend)
}

func TestReRegisterAppends(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(newStore(t), WithClock(tickingClock()))
	require.NoError(t, err)

	id, err := reg.Create(ctx, Config{
		Backend:  core.BackendVectorIndex,
		Location: core.Location{Index: "buu", Namespace: "faq"},
		Files:    []string{"a.csv"},
	})
	require.NoError(t, err)

	again, err := reg.Create(ctx, Config{
		ID:       id,
		Backend:  core.BackendVectorIndex,
		Location: core.Location{Index: "buu", Namespace: "faq"},
		Files:    []string{"a.csv", "b.csv"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	s, err := reg.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, s.Files)
}

func TestResolveUnknown(t *testing.T) {
	reg, err := NewRegistry(newStore(t))
	require.NoError(t, err)

	_, err = reg.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = reg.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolveOrLatest(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	strict, err := NewRegistry(store, WithClock(tickingClock()))
	require.NoError(t, err)
	loose, err := NewRegistry(store, WithSingleCorpusFallback(true))
	require.NoError(t, err)
	assert.False(t, strict.SingleCorpus())
	assert.True(t, loose.SingleCorpus())

	_, err = loose.ResolveOrLatest(ctx, "psid-1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "nothing registered yet")

	first, err := strict.Create(ctx, Config{Backend: core.BackendVectorIndex, Location: core.Location{Index: "one"}})
	require.NoError(t, err)
	second, err := strict.Create(ctx, Config{Backend: core.BackendVectorIndex, Location: core.Location{Index: "two"}})
	require.NoError(t, err)

	_, err = strict.ResolveOrLatest(ctx, "psid-1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "fallback is opt-in")

	s, err := loose.ResolveOrLatest(ctx, "psid-1")
	require.NoError(t, err)
	assert.Equal(t, second, s.ID)

	s, err = loose.ResolveOrLatest(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, s.ID, "an exact match wins over the fallback")
}

func TestList(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(newStore(t), WithClock(tickingClock()))
	require.NoError(t, err)

	var ids []string
	for _, index := range []string{"a", "b", "c"} {
		id, err := reg.Create(ctx, Config{Backend: core.BackendVectorIndex, Location: core.Location{Index: index}})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	sessions, err := reg.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, ids[2], sessions[0].ID)
	assert.Equal(t, ids[1], sessions[1].ID)
}
