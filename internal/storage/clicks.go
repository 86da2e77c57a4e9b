package storage

import (
	"context"
	"fmt"

	"github.com/mandimonitor/core/pkg/models"
)

// ClickStore handles the append-only click log, created when a user follows
// a delivered card's outbound link.
type ClickStore struct {
	db *DB
}

// NewClickStore creates a new click store.
func NewClickStore(db *DB) *ClickStore {
	return &ClickStore{db: db}
}

// Create records a click.
func (s *ClickStore) Create(ctx context.Context, click *models.Click) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO clicks (watch_id, asin, clicked_at) VALUES (?, ?, ?)
	`, click.WatchID, click.ASIN, click.ClickedAt)
	if err != nil {
		return fmt.Errorf("failed to create click: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted click id: %w", err)
	}
	click.ID = id
	return nil
}

// CountAll returns the total number of clicks recorded, for the admin
// metrics endpoint.
func (s *ClickStore) CountAll(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}
