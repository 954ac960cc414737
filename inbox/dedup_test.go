package inbox

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docchat/storage/sqlstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduplicator(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduplicator()

	dup, err := d.IsDuplicate(ctx, "mid.1")
	require.NoError(t, err)
	assert.False(t, dup)

	first, err := d.TryMark(ctx, "mid.1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = d.TryMark(ctx, "mid.1")
	require.NoError(t, err)
	assert.False(t, first)

	dup, err = d.IsDuplicate(ctx, "mid.1")
	require.NoError(t, err)
	assert.True(t, dup)

	_, err = d.TryMark(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyMessageID)
}

func TestMemoryDeduplicatorConcurrentTryMark(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduplicator()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := d.TryMark(ctx, "mid.race"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryDeduplicatorSweep(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduplicator()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	d.now = func() time.Time { return base }
	require.NoError(t, d.MarkProcessed(ctx, "old"))
	d.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, d.MarkProcessed(ctx, "new"))

	removed, err := d.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, d.Len())

	dup, _ := d.IsDuplicate(ctx, "new")
	assert.True(t, dup)
}

func TestStoreDeduplicator(t *testing.T) {
	ctx := context.Background()
	store, err := sqlstore.Open(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d := NewStoreDeduplicator(store)
	first, err := d.TryMark(ctx, "mid.1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = d.TryMark(ctx, "mid.1")
	require.NoError(t, err)
	assert.False(t, first)

	dup, err := d.IsDuplicate(ctx, "mid.1")
	require.NoError(t, err)
	assert.True(t, dup)

	d.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	removed, err := d.Sweep(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	dup, err = d.IsDuplicate(ctx, "mid.1")
	require.NoError(t, err)
	assert.False(t, dup)
}

// fakeRedis implements the commands RedisDeduplicator issues.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	keys map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: make(map[string]time.Duration)}
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.keys[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisDeduplicator(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	d := NewRedisDeduplicator(client, 0)

	first, err := d.TryMark(ctx, "mid.1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, DefaultDedupTTL, client.keys[DefaultRedisPrefix+"mid.1"])

	first, err = d.TryMark(ctx, "mid.1")
	require.NoError(t, err)
	assert.False(t, first)

	require.NoError(t, d.MarkProcessed(ctx, "mid.2"))
	dup, err := d.IsDuplicate(ctx, "mid.2")
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = d.IsDuplicate(ctx, "mid.3")
	require.NoError(t, err)
	assert.False(t, dup)

	_, err = d.IsDuplicate(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyMessageID)
}

func TestSweeperRunNow(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduplicator()
	d.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	require.NoError(t, d.MarkProcessed(ctx, "stale"))
	d.now = time.Now

	s := NewSweeper(nil)
	require.NoError(t, s.Add("", d, time.Hour))
	assert.Error(t, s.Add("not a schedule", d, time.Hour))

	assert.Equal(t, 1, s.RunNow(ctx))
	assert.Equal(t, 0, d.Len())

	s.Start()
	s.Stop()
}
