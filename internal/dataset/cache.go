package dataset

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tpcpower/internal/infrastructure"
	"tpcpower/pkg/contracts/domain"
)

// Snapshot is one immutable loaded version of the dataset
type Snapshot struct {
	Table    *domain.Table
	Stats    domain.LoadStats
	LoadedAt time.Time
}

// Cache memoises the loaded table for a single dataset path. Readers get the
// current snapshot without locking; loads are serialised so concurrent
// callers share one load.
type Cache struct {
	loader  TableLoader
	path    string
	watch   bool
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(*Snapshot)
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithWatch makes Get re-stat the file and reload when its size or
// modification time changed
func WithWatch(watch bool) CacheOption {
	return func(c *Cache) {
		c.watch = watch
	}
}

// NewCache creates a cache for path. Nothing is loaded until the first Get.
func NewCache(loader TableLoader, path string, logger *slog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		loader: loader,
		path:   path,
		logger: infrastructure.WithComponent(logger, "dataset_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the dataset path served by the cache
func (c *Cache) Path() string {
	return c.path
}

// OnReload registers fn to run after every successful load
func (c *Cache) OnReload(fn func(*Snapshot)) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Peek returns the current snapshot without loading, or nil
func (c *Cache) Peek() *Snapshot {
	return c.current.Load()
}

// Get returns the current snapshot, loading the dataset when there is none
// or, with watching enabled, when the file changed since it was loaded.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if snap := c.current.Load(); snap != nil && c.fresh(ctx, snap) {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have finished a load while we waited
	if snap := c.current.Load(); snap != nil && c.fresh(ctx, snap) {
		return snap, nil
	}

	return c.loadLocked(ctx)
}

// Invalidate drops the current snapshot; the next Get reloads
func (c *Cache) Invalidate() {
	c.current.Store(nil)
	c.logger.Info("Dataset cache invalidated", slog.String("path", c.path))
}

// Reload loads the dataset now and replaces the snapshot on success.
// On failure the previous snapshot is kept.
func (c *Cache) Reload(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Cache) loadLocked(ctx context.Context) (*Snapshot, error) {
	table, stats, err := c.loader.Load(ctx, c.path)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Table: table, Stats: stats, LoadedAt: time.Now()}
	c.current.Store(snap)

	c.listenersMu.RLock()
	listeners := append(([]func(*Snapshot))(nil), c.listeners...)
	c.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

// fresh reports whether snap still matches the file on disk. A file that can
// no longer be stat'ed keeps the old snapshot in service.
func (c *Cache) fresh(ctx context.Context, snap *Snapshot) bool {
	if !c.watch {
		return true
	}

	info, err := os.Stat(snap.Table.Source.Path)
	if err != nil {
		infrastructure.WithError(c.logger, err).WarnContext(ctx, "Dataset file not reachable, serving cached snapshot",
			slog.String("path", snap.Table.Source.Path))
		return true
	}

	current := domain.Source{Path: snap.Table.Source.Path, Size: info.Size(), ModTime: info.ModTime()}
	if current.Same(snap.Table.Source) {
		return true
	}

	c.logger.InfoContext(ctx, "Dataset file changed, reloading",
		slog.String("path", current.Path),
		slog.Int64("old_size", snap.Table.Source.Size),
		slog.Int64("new_size", current.Size))
	return false
}
