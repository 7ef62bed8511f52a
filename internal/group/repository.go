package group

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ChakshuVerma/halfride/internal/store"
)

const keyPrefix = "group:"

// Key returns the document key for a group.
func Key(id string) string {
	return keyPrefix + id
}

// Repository handles group document persistence
type Repository struct {
	store store.Store
}

// NewRepository creates a new group repository
func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Get returns the group, or nil when none exists.
func (r *Repository) Get(ctx context.Context, id string) (*Group, error) {
	data, err := r.store.Get(ctx, Key(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return decode(data)
}

// GetTx reads the group inside a transaction, or nil when none exists.
func (r *Repository) GetTx(ctx context.Context, tx store.Tx, id string) (*Group, error) {
	data, err := tx.Get(ctx, Key(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return decode(data)
}

// PutTx stages a group write inside a transaction.
func (r *Repository) PutTx(tx store.Tx, g *Group) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal group: %w", err)
	}
	tx.Set(Key(g.ID), data)
	return nil
}

// DeleteTx stages a group delete inside a transaction.
func (r *Repository) DeleteTx(tx store.Tx, id string) {
	tx.Delete(Key(id))
}

// ListByAirport returns every group at the airport.
func (r *Repository) ListByAirport(ctx context.Context, airportCode string) ([]*Group, error) {
	docs, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	groups := make([]*Group, 0, len(docs))
	for _, data := range docs {
		g, err := decode(data)
		if err != nil {
			return nil, err
		}
		if g.AirportCode == airportCode {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

func decode(data []byte) (*Group, error) {
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal group: %w", err)
	}
	return &g, nil
}
