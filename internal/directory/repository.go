// Package directory is a read-only view over the user profiles owned by
// the account system. The matching engine only needs display names for
// notification text and member listings.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Repository resolves user display names
type Repository struct {
	db *sql.DB

	mu    sync.RWMutex
	cache map[string]string
}

// NewRepository creates a new directory repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, cache: make(map[string]string)}
}

// DisplayName returns the display name for a user, or the empty string
// when the user is unknown. Names are immutable from this side, so
// resolved values are cached for the process lifetime.
func (r *Repository) DisplayName(ctx context.Context, uid string) (string, error) {
	r.mu.RLock()
	name, ok := r.cache[uid]
	r.mu.RUnlock()
	if ok {
		return name, nil
	}

	query := `SELECT display_name FROM users WHERE uid = $1`
	err := r.db.QueryRowContext(ctx, query, uid).Scan(&name)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve display name: %w", err)
	}

	r.mu.Lock()
	r.cache[uid] = name
	r.mu.Unlock()
	return name, nil
}
