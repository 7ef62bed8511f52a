package store

import (
	"context"
	"errors"
	"time"

	"github.com/ChakshuVerma/halfride/internal/observability"
)

// Common errors
var (
	ErrNotFound   = errors.New("document not found")
	ErrExists     = errors.New("document already exists")
	ErrTxConflict = errors.New("transaction conflict")
)

// Tx is the access surface available inside a transaction. Reads see
// committed state plus any writes staged earlier in the same transaction;
// writes are buffered and applied atomically on commit.
type Tx interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(key string, data []byte)
	Delete(key string)
}

// Store is the narrow document-store interface the matching engine is
// written against. Single-key operations are atomic on their own; any
// read-then-write decision must go through RunTransaction.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	SetIfAbsent(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error

	// List returns all documents whose key starts with prefix, keyed by
	// their full key.
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// RunTransaction executes fn once with optimistic concurrency over the
	// given keys. If a watched key changes before commit it returns
	// ErrTxConflict and no writes are applied.
	RunTransaction(ctx context.Context, keys []string, fn func(tx Tx) error) error
}

// Retry re-runs fn while it reports ErrTxConflict, backing off between
// attempts. Any other error (or success) is returned as-is. Callers that
// need to re-derive the watched key set do so inside fn.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := 10 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, ErrTxConflict) {
			return err
		}
		observability.TxConflictsTotal.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
