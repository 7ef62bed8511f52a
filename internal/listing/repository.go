package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ChakshuVerma/halfride/internal/store"
)

const keyPrefix = "listing:"

// Key returns the document key for a user's listing at an airport.
func Key(airportCode, uid string) string {
	return keyPrefix + airportCode + ":" + uid
}

// AirportPrefix returns the key prefix covering every listing at an airport.
func AirportPrefix(airportCode string) string {
	return keyPrefix + airportCode + ":"
}

type Repository struct {
	store store.Store
}

func NewRepository(s store.Store) *Repository {
	return &Repository{store: s}
}

// Create inserts the listing only if no document exists for its key,
// enforcing the one-active-listing-per-airport rule atomically. It returns
// store.ErrExists when the slot is taken.
func (r *Repository) Create(ctx context.Context, l *TravelerListing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	if err := r.store.SetIfAbsent(ctx, Key(l.AirportCode, l.UserID), data); err != nil {
		if errors.Is(err, store.ErrExists) {
			return err
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// Get returns the listing for (airport, uid), or nil when none exists.
func (r *Repository) Get(ctx context.Context, airportCode, uid string) (*TravelerListing, error) {
	data, err := r.store.Get(ctx, Key(airportCode, uid))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return decode(data)
}

// GetTx reads the listing inside a transaction, or nil when none exists.
func (r *Repository) GetTx(ctx context.Context, tx store.Tx, airportCode, uid string) (*TravelerListing, error) {
	data, err := tx.Get(ctx, Key(airportCode, uid))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return decode(data)
}

func (r *Repository) Put(ctx context.Context, l *TravelerListing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	if err := r.store.Set(ctx, Key(l.AirportCode, l.UserID), data); err != nil {
		return fmt.Errorf("failed to put listing: %w", err)
	}
	return nil
}

// PutTx stages a listing write inside a transaction.
func (r *Repository) PutTx(tx store.Tx, l *TravelerListing) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %w", err)
	}
	tx.Set(Key(l.AirportCode, l.UserID), data)
	return nil
}

func (r *Repository) Delete(ctx context.Context, airportCode, uid string) error {
	if err := r.store.Delete(ctx, Key(airportCode, uid)); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

// DeleteTx stages a listing delete inside a transaction.
func (r *Repository) DeleteTx(tx store.Tx, airportCode, uid string) {
	tx.Delete(Key(airportCode, uid))
}

// ListByAirport returns every listing at the airport, completed ones included;
// callers filter by status.
func (r *Repository) ListByAirport(ctx context.Context, airportCode string) ([]*TravelerListing, error) {
	docs, err := r.store.List(ctx, AirportPrefix(airportCode))
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	listings := make([]*TravelerListing, 0, len(docs))
	for key, data := range docs {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		l, err := decode(data)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func decode(data []byte) (*TravelerListing, error) {
	var l TravelerListing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listing: %w", err)
	}
	return &l, nil
}
