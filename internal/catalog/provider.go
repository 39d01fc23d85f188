package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// SnapshotCache shares serialized snapshots between service instances.
type SnapshotCache interface {
	Get(ctx context.Context) (*Snapshot, bool, error)
	Put(ctx context.Context, snap *Snapshot) error
	Invalidate(ctx context.Context) error
}

// Provider hands out the current catalog snapshot. Readers take the snapshot
// once per request; Refresh swaps it atomically so in-flight requests keep a
// consistent view.
type Provider struct {
	store   Store
	cache   SnapshotCache // optional
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes refreshes
	logger  zerolog.Logger
}

// NewProvider creates a provider. cache may be nil.
func NewProvider(store Store, cache SnapshotCache, logger zerolog.Logger) *Provider {
	return &Provider{
		store:  store,
		cache:  cache,
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// NewStaticProvider wraps an already built snapshot.
func NewStaticProvider(snap *Snapshot) *Provider {
	p := &Provider{logger: zerolog.Nop()}
	p.current.Store(snap)
	return p
}

// Snapshot returns the current snapshot.
func (p *Provider) Snapshot() (*Snapshot, error) {
	snap := p.current.Load()
	if snap == nil {
		return nil, apperrors.ErrCatalogEmpty
	}
	return snap, nil
}

// Warm loads the first snapshot, preferring the shared cache.
func (p *Provider) Warm(ctx context.Context) error {
	if p.cache != nil {
		snap, ok, err := p.cache.Get(ctx)
		if err != nil {
			p.logger.Warn().Err(err).Msg("Catalog cache read failed, loading from store")
		} else if ok {
			p.current.Store(snap)
			p.logger.Info().Int("courses", snap.Len()).Time("loadedAt", snap.LoadedAt()).Msg("Catalog snapshot loaded from cache")
			return nil
		}
	}
	return p.Refresh(ctx)
}

// Refresh reloads the catalog from the store and publishes it to the cache.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	snap, err := Load(ctx, p.store)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to load catalog snapshot")
		return err
	}
	p.current.Store(snap)
	p.logger.Info().Int("courses", snap.Len()).Dur("took", time.Since(start)).Msg("Catalog snapshot refreshed")

	if p.cache != nil {
		if err := p.cache.Put(ctx, snap); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to publish catalog snapshot to cache")
		}
	}
	return nil
}

// Invalidate drops the shared cache entry and reloads.
func (p *Provider) Invalidate(ctx context.Context) error {
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to invalidate catalog cache")
		}
	}
	return p.Refresh(ctx)
}

// Run refreshes the snapshot every interval until ctx is done.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Warn().Err(err).Msg("Periodic catalog refresh failed, keeping previous snapshot")
			}
		}
	}
}
