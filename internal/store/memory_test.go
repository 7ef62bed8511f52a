package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreBasicOperations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", []byte("one")))
	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	err = s.SetIfAbsent(ctx, "a", []byte("two"))
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, s.SetIfAbsent(ctx, "b", []byte("two")))

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "listing:JFK:u1", []byte("1")))
	require.NoError(t, s.Set(ctx, "listing:JFK:u2", []byte("2")))
	require.NoError(t, s.Set(ctx, "listing:LAX:u3", []byte("3")))
	require.NoError(t, s.Set(ctx, "group:g1", []byte("4")))

	docs, err := s.List(ctx, "listing:JFK:")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Contains(t, docs, "listing:JFK:u1")
	assert.Contains(t, docs, "listing:JFK:u2")
}

func TestMemoryStoreTransactionStagedReads(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", []byte("old")))

	err := s.RunTransaction(ctx, []string{"k", "n"}, func(tx Tx) error {
		tx.Set("k", []byte("new"))
		got, err := tx.Get(ctx, "k")
		if err != nil {
			return err
		}
		// Reads observe writes staged earlier in the same transaction.
		assert.Equal(t, []byte("new"), got)

		tx.Delete("k")
		_, err = tx.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)

		tx.Set("n", []byte("fresh"))
		return nil
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
}

func TestMemoryStoreTransactionAbortsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k", []byte("old")))

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, []string{"k"}, func(tx Tx) error {
		tx.Set("k", []byte("new"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got, "failed transaction must not apply staged writes")
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, func() error {
		calls++
		if calls < 3 {
			return ErrTxConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), 5, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func() error {
		calls++
		return ErrTxConflict
	})
	assert.ErrorIs(t, err, ErrTxConflict)
	assert.Equal(t, 3, calls)
}
