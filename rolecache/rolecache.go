// Package rolecache keeps the role list of every guild the bot has seen. Entries never
// expire, role mutation events invalidate them.
package rolecache

import (
	"context"
	"fmt"
	"sync"

	"github.com/khlpkg/gateway"
	"github.com/khlpkg/gateway/event"
)

// Fetcher loads the complete role list of a guild.
type Fetcher interface {
	GuildRoles(ctx context.Context, guildID string) ([]event.Role, error)
}

// Store persists role lists. A missing entry is reported with ok set to false.
type Store interface {
	Get(ctx context.Context, guildID string) (roles []event.Role, ok bool, err error)
	Set(ctx context.Context, guildID string, roles []event.Role) error
	Delete(ctx context.Context, guildID string) error
}

type Option func(cache *Cache)

func WithStore(store Store) Option {
	return func(cache *Cache) {
		cache.store = store
	}
}

func WithLogger(logger gateway.Logger) Option {
	return func(cache *Cache) {
		cache.logger = logger
	}
}

func New(fetcher Fetcher, options ...Option) *Cache {
	cache := &Cache{
		fetcher: fetcher,
		locks:   map[string]*sync.Mutex{},
	}
	for _, option := range options {
		option(cache)
	}
	if cache.store == nil {
		cache.store = NewMemoryStore()
	}
	if cache.logger == nil {
		cache.logger = gateway.NopLogger()
	}
	return cache
}

// Cache serializes every operation on a guild entry, so an invalidation followed by a
// refetch completes before a concurrent lookup of the same guild reads the entry.
type Cache struct {
	fetcher Fetcher
	store   Store
	logger  gateway.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ gateway.RoleProvider = (*Cache)(nil)

func (c *Cache) lock(guildID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[guildID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[guildID] = l
	}
	return l
}

// Get returns the cached role list, fetching and storing it on a miss.
func (c *Cache) Get(ctx context.Context, guildID string) ([]event.Role, error) {
	l := c.lock(guildID)
	l.Lock()
	defer l.Unlock()

	roles, ok, err := c.store.Get(ctx, guildID)
	if err != nil {
		c.logger.Warn("unable to read cached roles of guild %s, fetching instead. %s", guildID, err)
	} else if ok {
		return roles, nil
	}
	return c.fetch(ctx, guildID)
}

// Invalidate removes the entry, the next Get fetches it again.
func (c *Cache) Invalidate(ctx context.Context, guildID string) error {
	l := c.lock(guildID)
	l.Lock()
	defer l.Unlock()

	return c.store.Delete(ctx, guildID)
}

// Refresh invalidates the entry and fetches it again while holding the guild lock. The
// entry stays removed when the fetch fails.
func (c *Cache) Refresh(ctx context.Context, guildID string) ([]event.Role, error) {
	l := c.lock(guildID)
	l.Lock()
	defer l.Unlock()

	if err := c.store.Delete(ctx, guildID); err != nil {
		return nil, fmt.Errorf("unable to invalidate roles of guild %s. %w", guildID, err)
	}
	return c.fetch(ctx, guildID)
}

func (c *Cache) fetch(ctx context.Context, guildID string) ([]event.Role, error) {
	roles, err := c.fetcher.GuildRoles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch roles of guild %s. %w", guildID, err)
	}
	if err := c.store.Set(ctx, guildID, roles); err != nil {
		c.logger.Warn("unable to cache roles of guild %s. %s", guildID, err)
	}
	c.logger.Debug("cached %d roles of guild %s", len(roles), guildID)
	return roles, nil
}
