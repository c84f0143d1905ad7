package session

import (
	"encoding/json"
	"time"
)

// DefaultStorageKey is where the token record lives in the Storage medium.
const DefaultStorageKey = "auth_tokens"

// StoredTokens is the persisted token record. ExpiresAt is epoch
// milliseconds and is authoritative: a record whose expiry has passed is
// treated as absent by every read.
type StoredTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// ExpiryTime returns the record expiry as a time.Time.
func (t StoredTokens) ExpiryTime() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// TokenStore owns the persisted token record. Every mutation replaces the
// whole record so readers never observe partial state, and every operation
// degrades soft when the medium is unavailable or failing: reads yield
// nil/empty, writes report false. Nothing here panics or returns an error.
type TokenStore struct {
	storage Storage
	key     string
	now     nowFunc
	logger  Logger
}

// TokenStoreOption customizes TokenStore construction.
type TokenStoreOption func(*TokenStore)

// WithTokenStoreClock injects a custom clock (useful for tests).
func WithTokenStoreClock(clock nowFunc) TokenStoreOption {
	return func(s *TokenStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithTokenStoreKey overrides the storage key for the record.
func WithTokenStoreKey(key string) TokenStoreOption {
	return func(s *TokenStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTokenStoreLogger overrides the logger used for degraded operations.
func WithTokenStoreLogger(logger Logger) TokenStoreOption {
	return func(s *TokenStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewTokenStore builds a store over the given medium. A nil storage is
// valid and models a context without persistence: reads return nil and
// writes return false.
func NewTokenStore(storage Storage, opts ...TokenStoreOption) *TokenStore {
	s := &TokenStore{
		storage: storage,
		key:     DefaultStorageKey,
		now:     time.Now,
		logger:  defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SetTokens replaces the record with a fresh token pair expiring ttl from
// now. Reports whether the write reached the medium.
func (s *TokenStore) SetTokens(accessToken, refreshToken string, ttl time.Duration) bool {
	if s.storage == nil {
		return false
	}

	rec := StoredTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    s.now().Add(ttl).UnixMilli(),
	}
	return s.writeRecord(rec)
}

// GetTokens returns the stored record, or nil when the medium is
// unavailable, the record is missing or malformed, or it has expired. The
// exact expiry instant already counts as expired.
func (s *TokenStore) GetTokens() *StoredTokens {
	rec := s.readRecord()
	if rec == nil {
		return nil
	}
	if rec.ExpiresAt <= s.now().UnixMilli() {
		return nil
	}
	return rec
}

// AccessToken returns the current access token, or "" when no valid record
// exists.
func (s *TokenStore) AccessToken() string {
	rec := s.GetTokens()
	if rec == nil {
		return ""
	}
	return rec.AccessToken
}

// RefreshToken returns the current refresh token, or "" when no valid
// record exists.
func (s *TokenStore) RefreshToken() string {
	rec := s.GetTokens()
	if rec == nil {
		return ""
	}
	return rec.RefreshToken
}

// IsExpired reports whether the access token needs replacing. Missing
// record or unavailable medium count as expired: callers must fail closed.
func (s *TokenStore) IsExpired() bool {
	return s.GetTokens() == nil
}

// HasValidTokens reports whether a complete unexpired record exists.
func (s *TokenStore) HasValidTokens() bool {
	rec := s.GetTokens()
	return rec != nil && rec.AccessToken != "" && rec.RefreshToken != ""
}

// UpdateAccessToken replaces the access token and expiry of the current
// record, preserving the refresh token unconditionally. Without a valid
// record it reports false and creates nothing: a ghost record with no
// refresh token would be worse than none.
func (s *TokenStore) UpdateAccessToken(accessToken string, ttl time.Duration) bool {
	rec := s.GetTokens()
	if rec == nil {
		return false
	}

	rec.AccessToken = accessToken
	rec.ExpiresAt = s.now().Add(ttl).UnixMilli()
	return s.writeRecord(*rec)
}

// Clear removes the record. Reports whether the delete reached the medium.
func (s *TokenStore) Clear() bool {
	if s.storage == nil {
		return false
	}
	if err := s.storage.Delete(s.key); err != nil {
		s.logger.Error("token store clear failed: %v", err)
		return false
	}
	return true
}

func (s *TokenStore) readRecord() *StoredTokens {
	if s.storage == nil {
		return nil
	}

	data, err := s.storage.Get(s.key)
	if err != nil {
		if !errorIsNotFound(err) {
			s.logger.Error("token store read failed: %v", err)
		}
		return nil
	}

	var rec StoredTokens
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Error("token store record malformed: %v", err)
		return nil
	}
	if rec.AccessToken == "" || rec.RefreshToken == "" || rec.ExpiresAt == 0 {
		s.logger.Debug("token store record missing required fields")
		return nil
	}
	return &rec
}

func (s *TokenStore) writeRecord(rec StoredTokens) bool {
	data, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("token store encode failed: %v", err)
		return false
	}
	if err := s.storage.Set(s.key, data); err != nil {
		s.logger.Error("token store write failed: %v", err)
		return false
	}
	return true
}
