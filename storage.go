package session

import (
	"sync"

	"github.com/goliatone/go-errors"
)

// ErrStorageKeyNotFound is returned by Storage.Get for missing keys.
var ErrStorageKeyNotFound = errors.New("storage key not found", errors.CategoryNotFound).
	WithTextCode("STORAGE_KEY_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// Storage is the key-value medium backing TokenStore. Implementations must
// replace values wholesale on Set; TokenStore relies on that to keep the
// token record atomic. A nil Storage models an execution context without a
// persistence medium (e.g. SSR): TokenStore degrades soft instead of
// failing.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

func errorIsNotFound(err error) bool {
	return errors.Is(err, ErrStorageKeyNotFound) || errors.IsNotFound(err)
}

// MemoryStorage is a process-local Storage, used in tests and in contexts
// where persistence across restarts is not wanted.
type MemoryStorage struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{m: make(map[string][]byte)}
}

func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.m[key]
	if !ok {
		return nil, ErrStorageKeyNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *MemoryStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.m[key] = stored
	return nil
}

func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)
	return nil
}
