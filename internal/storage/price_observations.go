package storage

import (
	"context"
	"fmt"

	"github.com/mandimonitor/core/pkg/models"
)

// PriceObservationStore handles the append-only price observation log used
// for history, ranking tie-breaks, and the admin CSV export.
type PriceObservationStore struct {
	db *DB
}

// NewPriceObservationStore creates a new price observation store.
func NewPriceObservationStore(db *DB) *PriceObservationStore {
	return &PriceObservationStore{db: db}
}

// Create inserts a new observation. Observations are never mutated or
// deleted after insert; a non-positive price is rejected outright.
func (s *PriceObservationStore) Create(ctx context.Context, obs *models.PriceObservation) error {
	if !obs.Price.Valid() {
		return fmt.Errorf("storage: refusing to record non-positive price observation %d for asin %s", obs.Price, obs.ASIN)
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO price_observations (watch_id, asin, price, source, fetched_at)
		VALUES (?, ?, ?, ?, ?)
	`, obs.WatchID, obs.ASIN, int64(obs.Price), string(obs.Source), obs.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to create price observation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted observation id: %w", err)
	}
	obs.ID = id
	return nil
}

// CountBySource returns the number of price observations recorded with the
// given source, for the admin metrics endpoint's scrape-fallback count.
func (s *PriceObservationStore) CountBySource(ctx context.Context, source models.PriceSource) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_observations WHERE source = ?`, string(source),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count price observations: %w", err)
	}
	return count, nil
}

// StreamAll invokes fn once per row, in insertion (id) order, for the admin
// CSV export. It streams via a cursor rather than loading every row into
// memory, since the export is unbounded.
func (s *PriceObservationStore) StreamAll(ctx context.Context, fn func(models.PriceObservation) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, watch_id, asin, price, source, fetched_at
		FROM price_observations ORDER BY id ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to query price observations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var obs models.PriceObservation
		var price int64
		var source string
		if err := rows.Scan(&obs.ID, &obs.WatchID, &obs.ASIN, &price, &source, &obs.FetchedAt); err != nil {
			return fmt.Errorf("failed to scan price observation: %w", err)
		}
		obs.Price = models.Paise(price)
		obs.Source = models.PriceSource(source)
		if err := fn(obs); err != nil {
			return err
		}
	}
	return rows.Err()
}
