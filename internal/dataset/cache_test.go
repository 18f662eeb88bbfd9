package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/internal/columnar"
	"tpcpower/internal/infrastructure"
	"tpcpower/pkg/contracts/domain"
)

// countingLoader wraps a TableLoader and counts calls
type countingLoader struct {
	inner TableLoader
	calls atomic.Int32
	fail  atomic.Bool
	delay time.Duration
}

func (l *countingLoader) Load(ctx context.Context, path string) (*domain.Table, domain.LoadStats, error) {
	l.calls.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	if l.fail.Load() {
		return nil, domain.LoadStats{}, errors.New("boom")
	}
	return l.inner.Load(ctx, path)
}

func newCacheFixture(t *testing.T, opts ...CacheOption) (*Cache, *countingLoader, string) {
	t.Helper()
	path := writeParquet(t, t.TempDir(), "clean.parquet", textColumns, [][]columnar.Value{
		textRow("2023-05-01 10:00", "Coal", "Taichung#1", "550", "500", ""),
	})
	loader := &countingLoader{inner: newTestLoader()}
	return NewCache(loader, path, infrastructure.DiscardLogger(), opts...), loader, path
}

func TestCache_LoadsOnce(t *testing.T) {
	cache, loader, _ := newCacheFixture(t)
	assert.Nil(t, cache.Peek())

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Same(t, first, cache.Peek())
	assert.Equal(t, 1, first.Table.Len())
	assert.False(t, first.LoadedAt.IsZero())
}

func TestCache_ConcurrentGetSharesLoad(t *testing.T) {
	cache, loader, _ := newCacheFixture(t)
	loader.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	snaps := make([]*Snapshot, 16)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := cache.Get(context.Background())
			assert.NoError(t, err)
			snaps[i] = snap
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	for _, s := range snaps {
		assert.Same(t, snaps[0], s)
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache, loader, _ := newCacheFixture(t)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	cache.Invalidate()
	assert.Nil(t, cache.Peek())

	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestCache_ReloadFailureKeepsSnapshot(t *testing.T) {
	cache, loader, _ := newCacheFixture(t)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	loader.fail.Store(true)
	snap, err := cache.Reload(context.Background())
	assert.Error(t, err)
	assert.Nil(t, snap)
	assert.Same(t, first, cache.Peek())
}

func TestCache_GetFailureIsNotCached(t *testing.T) {
	cache, loader, _ := newCacheFixture(t)
	loader.fail.Store(true)

	_, err := cache.Get(context.Background())
	require.Error(t, err)

	loader.fail.Store(false)
	snap, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestCache_WatchReloadsChangedFile(t *testing.T) {
	cache, loader, path := newCacheFixture(t, WithWatch(true))

	var notified atomic.Int32
	cache.OnReload(func(s *Snapshot) {
		notified.Add(1)
	})

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Table.Len())

	// unchanged file is served from memory
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.calls.Load())

	writeParquet(t, filepath.Dir(path), "clean.parquet", textColumns, [][]columnar.Value{
		textRow("2023-05-01 10:00", "Coal", "Taichung#1", "550", "500", ""),
		textRow("2023-05-01 10:10", "Coal", "Taichung#2", "550", "510", "central"),
	})
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.Table.Len())
	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Equal(t, int32(2), notified.Load())
}

func TestCache_WatchServesSnapshotWhenFileDisappears(t *testing.T) {
	cache, loader, path := newCacheFixture(t, WithWatch(true))

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestCache_WithoutWatchIgnoresChanges(t *testing.T) {
	cache, loader, path := newCacheFixture(t)

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, path, cache.Path())
}
