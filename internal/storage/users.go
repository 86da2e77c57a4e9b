package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mandimonitor/core/pkg/models"
)

// UserStore handles user persistence. A user is identified by an opaque
// external chat user ID and holds no mutable state beyond CreatedAt.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// EnsureExists inserts a user row for id if one does not already exist,
// the chat adapter's "create on first interaction" rule from the data
// model, and returns the (possibly pre-existing) record.
func (s *UserStore) EnsureExists(ctx context.Context, id int64) (*models.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user exists: %w", err)
	}
	return s.Get(ctx, id)
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CountUsers returns the total number of registered users, for the admin
// metrics endpoint.
func (s *UserStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CountWatchCreators returns the number of distinct users owning at least
// one watch, for the admin metrics endpoint.
func (s *UserStore) CountWatchCreators(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT user_id) FROM watches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count watch creators: %w", err)
	}
	return count, nil
}
