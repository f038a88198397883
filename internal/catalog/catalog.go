// package catalog caches each user's playlist listing per provider.
//
// Listings are persisted so they survive restarts; staleness is computed from
// the recorded sync time. Refreshes replace a (user, provider) entry
// atomically, and a failed refresh over a populated cache degrades to stale
// data instead of an error.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tunebridge/tunebridge/internal/connections"
	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/providers"
	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// Listing is a playlist listing annotated with cache metadata.
type Listing struct {
	Playlists []models.Playlist `json:"playlists"`
	SyncedAt  time.Time         `json:"synced_at"`
	Stale     bool              `json:"stale"`
}

// Cache serves playlist listings from the durable cache, refreshing through
// the provider adapter when the entry is older than the staleness threshold.
type Cache struct {
	repo     *repositories.PlaylistRepository
	manager  *connections.Manager
	registry *providers.Registry
	ttl      time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCache creates a catalog cache with the given staleness threshold.
func NewCache(repo *repositories.PlaylistRepository, manager *connections.Manager, registry *providers.Registry, ttl time.Duration, logger *log.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Cache{
		repo:     repo,
		manager:  manager,
		registry: registry,
		ttl:      ttl,
		logger:   shared.WithLogger(logger, "component", "catalog"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// keyLock returns the mutex serializing refreshes for one (user, provider) key.
func (c *Cache) keyLock(userID string, provider models.ProviderID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := userID + "|" + string(provider)
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

// ListPlaylists returns the user's playlists on the given provider.
//
// Cached data is returned while younger than the staleness threshold unless
// forceRefresh is set. On a refresh failure with a populated cache, the stale
// listing is returned with Stale=true; with an empty cache the error
// propagates.
func (c *Cache) ListPlaylists(ctx context.Context, userID string, provider models.ProviderID, forceRefresh bool) (*Listing, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	}

	lock := c.keyLock(userID, provider)
	lock.Lock()
	defer lock.Unlock()

	syncedAt, synced, err := c.repo.LastSyncedAt(userID, provider)
	if err != nil {
		return nil, err
	}

	if synced && !forceRefresh && time.Since(syncedAt) < c.ttl {
		playlists, err := c.repo.List(userID, provider)
		if err != nil {
			return nil, err
		}
		return &Listing{Playlists: playlists, SyncedAt: syncedAt, Stale: false}, nil
	}

	fresh, refreshErr := c.refresh(ctx, userID, provider)
	if refreshErr == nil {
		return fresh, nil
	}

	if !synced {
		return nil, refreshErr
	}

	c.logger.Warn("catalog refresh failed, serving stale cache",
		"user", userID, "provider", provider, "err", refreshErr)

	playlists, err := c.repo.List(userID, provider)
	if err != nil {
		return nil, err
	}
	return &Listing{Playlists: playlists, SyncedAt: syncedAt, Stale: true}, nil
}

// refresh pulls a fresh listing from the provider and replaces the cache entry.
func (c *Cache) refresh(ctx context.Context, userID string, provider models.ProviderID) (*Listing, error) {
	conn, err := c.manager.EnsureValid(ctx, userID, provider)
	if err != nil {
		return nil, err
	}

	adapter, err := c.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	playlists, err := adapter.ListPlaylists(ctx, conn.AccessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := c.repo.ReplaceAll(userID, provider, playlists, now); err != nil {
		return nil, err
	}

	c.logger.Debug("catalog refreshed", "user", userID, "provider", provider, "playlists", len(playlists))
	return &Listing{Playlists: playlists, SyncedAt: now, Stale: false}, nil
}
