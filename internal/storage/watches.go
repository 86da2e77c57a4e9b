package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mandimonitor/core/pkg/models"
)

// WatchStore handles watch persistence.
type WatchStore struct {
	db *DB
}

// NewWatchStore creates a new watch store.
func NewWatchStore(db *DB) *WatchStore {
	return &WatchStore{db: db}
}

// Create inserts a new watch.
func (s *WatchStore) Create(ctx context.Context, watch *models.Watch) error {
	query := `
		INSERT INTO watches (
			id, user_id, keywords, brand, max_price, min_discount, asin, mode, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		watch.ID, watch.UserID, watch.Keywords, watch.Brand,
		int64(watch.MaxPrice), watch.MinDiscount, watch.ASIN, string(watch.Mode), watch.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create watch: %w", err)
	}
	return nil
}

// Get retrieves a watch by ID.
func (s *WatchStore) Get(ctx context.Context, id string) (*models.Watch, error) {
	query := `
		SELECT id, user_id, keywords, brand, max_price, min_discount, asin, mode, created_at
		FROM watches WHERE id = ?
	`
	watch, err := scanWatch(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	return watch, nil
}

// UpdateMode atomically changes a watch's trigger family. The caller is
// responsible for deregistering the old scheduler job and registering the
// new one; this call only persists the change.
func (s *WatchStore) UpdateMode(ctx context.Context, id string, mode models.WatchMode) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE watches SET mode = ? WHERE id = ?`, string(mode), id)
	if err != nil {
		return fmt.Errorf("failed to update watch mode: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a watch.
func (s *WatchStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM watches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByMode returns every watch in the given trigger family, for the
// Scheduler to re-register on process start.
func (s *WatchStore) ListByMode(ctx context.Context, mode models.WatchMode) ([]*models.Watch, error) {
	query := `
		SELECT id, user_id, keywords, brand, max_price, min_discount, asin, mode, created_at
		FROM watches WHERE mode = ? ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var watches []*models.Watch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, watch)
	}
	return watches, rows.Err()
}

// ListByUser returns every watch owned by userID.
func (s *WatchStore) ListByUser(ctx context.Context, userID int64) ([]*models.Watch, error) {
	query := `
		SELECT id, user_id, keywords, brand, max_price, min_discount, asin, mode, created_at
		FROM watches WHERE user_id = ? ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var watches []*models.Watch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watches = append(watches, watch)
	}
	return watches, rows.Err()
}

// CountLive returns the number of watches currently registered, for the
// admin metrics endpoint.
func (s *WatchStore) CountLive(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count watches: %w", err)
	}
	return count, nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows so scanWatch serves
// both Get (single row) and the List* methods (row cursor).
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWatch(row rowScanner) (*models.Watch, error) {
	watch := &models.Watch{}
	var maxPrice int64
	var mode string
	if err := row.Scan(
		&watch.ID, &watch.UserID, &watch.Keywords, &watch.Brand,
		&maxPrice, &watch.MinDiscount, &watch.ASIN, &mode, &watch.CreatedAt,
	); err != nil {
		return nil, err
	}
	watch.MaxPrice = models.Paise(maxPrice)
	watch.Mode = models.WatchMode(mode)
	return watch, nil
}
