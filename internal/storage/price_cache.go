package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mandimonitor/core/pkg/models"
)

// PriceCacheStore handles the process-wide price cache: ASIN -> last
// observed price. It carries no foreign key to watches, since an entry
// outlives any single watch that happens to reference that ASIN.
type PriceCacheStore struct {
	db *DB
}

// NewPriceCacheStore creates a new price cache store.
func NewPriceCacheStore(db *DB) *PriceCacheStore {
	return &PriceCacheStore{db: db}
}

// Get retrieves the cache entry for asin, or (nil, nil) on a miss. A
// returned entry may be stale; callers decide freshness via IsFresh.
func (s *PriceCacheStore) Get(ctx context.Context, asin string) (*models.PriceCacheEntry, error) {
	entry := &models.PriceCacheEntry{}
	var source string
	err := s.db.QueryRowContext(ctx,
		`SELECT asin, price, source, fetched_at, stale_until FROM price_cache WHERE asin = ?`, asin,
	).Scan(&entry.ASIN, &entry.Price, &source, &entry.FetchedAt, &entry.StaleUntil)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price cache entry: %w", err)
	}
	entry.Source = models.PriceSource(source)
	return entry, nil
}

// Upsert writes entry, replacing any prior value for the same ASIN. A
// non-positive price is never written, matching the Price Oracle's
// invariant that a cache write never poisons the entry with a zero or
// negative price from a partial extraction.
func (s *PriceCacheStore) Upsert(ctx context.Context, entry models.PriceCacheEntry) error {
	if !entry.Price.Valid() {
		return fmt.Errorf("storage: refusing to cache non-positive price %d for asin %s", entry.Price, entry.ASIN)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_cache (asin, price, source, fetched_at, stale_until)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asin) DO UPDATE SET
			price = excluded.price,
			source = excluded.source,
			fetched_at = excluded.fetched_at,
			stale_until = excluded.stale_until
	`, entry.ASIN, int64(entry.Price), string(entry.Source), entry.FetchedAt, entry.StaleUntil)
	if err != nil {
		return fmt.Errorf("failed to upsert price cache entry: %w", err)
	}
	return nil
}
