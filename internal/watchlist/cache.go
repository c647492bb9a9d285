package watchlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"plate-service/internal/model"
	"plate-service/internal/utils"
)

// Store is the persistence behind the cache. Satisfied by
// repository.WatchlistRepository.
type Store interface {
	ReplaceAll(ctx context.Context, entries []model.WatchlistEntry) error
	List(ctx context.Context) ([]model.WatchlistEntry, error)
}

// Cache holds the current hot sheet snapshot in memory, keyed by
// normalized plate text. Refresh swaps the whole map at once so readers
// never observe a partial list.
type Cache struct {
	store Store
	log   zerolog.Logger

	mu          sync.RWMutex
	snapshot    map[string]model.WatchlistEntry
	refreshedAt time.Time
}

func NewCache(store Store, log zerolog.Logger) *Cache {
	return &Cache{
		store:    store,
		log:      log,
		snapshot: make(map[string]model.WatchlistEntry),
	}
}

// Warm loads the persisted snapshot, typically once at startup. The hot
// sheet survives restarts; a fresh fetch only happens on Refresh.
func (c *Cache) Warm(ctx context.Context) error {
	entries, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load hot sheet: %w", err)
	}

	snapshot := make(map[string]model.WatchlistEntry, len(entries))
	var newest time.Time
	for _, e := range entries {
		snapshot[utils.NormalizePlate(e.PlateText)] = e
		if e.ListedAt.After(newest) {
			newest = e.ListedAt
		}
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.refreshedAt = newest
	c.mu.Unlock()

	c.log.Info().Int("entries", len(snapshot)).Msg("hot sheet warmed from store")
	return nil
}

// Refresh replaces the snapshot with the given plate list, persisting it
// first. If persistence fails, both the store and the in-memory snapshot
// keep their previous contents.
func (c *Cache) Refresh(ctx context.Context, plates []string) error {
	now := time.Now()

	entries := make([]model.WatchlistEntry, 0, len(plates))
	snapshot := make(map[string]model.WatchlistEntry, len(plates))
	for _, p := range plates {
		normalized := utils.NormalizePlate(p)
		if normalized == "" {
			continue
		}
		entry := model.WatchlistEntry{PlateText: p, ListedAt: now}
		entries = append(entries, entry)
		snapshot[normalized] = entry
	}

	if err := c.store.ReplaceAll(ctx, entries); err != nil {
		return err
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.refreshedAt = now
	c.mu.Unlock()

	c.log.Info().Int("entries", len(snapshot)).Msg("hot sheet refreshed")
	return nil
}

// Contains reports whether the plate is on the current snapshot, matching
// by normalized text so formatting never affects membership.
func (c *Cache) Contains(plateText string) bool {
	_, ok := c.Lookup(plateText)
	return ok
}

func (c *Cache) Lookup(plateText string) (model.WatchlistEntry, bool) {
	normalized := utils.NormalizePlate(plateText)

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.snapshot[normalized]
	return entry, ok
}

func (c *Cache) LastRefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshot)
}
