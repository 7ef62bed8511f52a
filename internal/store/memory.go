package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. Transactions take the store lock for
// their whole duration, so conflicting transactions serialize instead of
// aborting; the precondition re-checks inside each transaction still see
// the committed state of earlier winners. Used in tests and local runs
// without Redis.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(data), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = clone(data)
	return nil
}

func (s *MemoryStore) SetIfAbsent(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; ok {
		return ErrExists
	}
	s.docs[key] = clone(data)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte)
	for key, data := range s.docs {
		if strings.HasPrefix(key, prefix) {
			out[key] = clone(data)
		}
	}
	return out, nil
}

func (s *MemoryStore) RunTransaction(ctx context.Context, keys []string, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &memoryTx{store: s, sets: make(map[string][]byte), dels: make(map[string]bool)}
	if err := fn(t); err != nil {
		return err
	}
	for key, data := range t.sets {
		s.docs[key] = data
	}
	for key := range t.dels {
		delete(s.docs, key)
	}
	return nil
}

type memoryTx struct {
	store *MemoryStore
	sets  map[string][]byte
	dels  map[string]bool
}

func (t *memoryTx) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := t.sets[key]; ok {
		return clone(data), nil
	}
	if t.dels[key] {
		return nil, ErrNotFound
	}
	data, ok := t.store.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(data), nil
}

func (t *memoryTx) Set(key string, data []byte) {
	delete(t.dels, key)
	t.sets[key] = clone(data)
}

func (t *memoryTx) Delete(key string) {
	delete(t.sets, key)
	t.dels[key] = true
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ Store = (*MemoryStore)(nil)
