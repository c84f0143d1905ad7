package session

import (
	"github.com/99designs/keyring"
	"github.com/goliatone/go-errors"
)

// KeyringStorage persists values in the OS keychain. Token records contain
// long-lived credentials, so desktop and CLI hosts should prefer this over
// file-backed media.
type KeyringStorage struct {
	ring keyring.Keyring
}

var _ Storage = (*KeyringStorage)(nil)

// NewKeyringStorage opens the named keyring service.
func NewKeyringStorage(service string) (*KeyringStorage, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to open keyring")
	}
	return &KeyringStorage{ring: ring}, nil
}

func (s *KeyringStorage) Get(key string) ([]byte, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrStorageKeyNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "keyring read failed")
	}
	return item.Data, nil
}

func (s *KeyringStorage) Set(key string, value []byte) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: value,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "keyring write failed")
	}
	return nil
}

func (s *KeyringStorage) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return errors.Wrap(err, errors.CategoryOperation, "keyring delete failed")
	}
	return nil
}
