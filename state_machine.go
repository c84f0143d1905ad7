package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Status is the canonical authentication status the UI renders from.
type Status string

const (
	// StatusUnauthenticated is the initial state and the terminal state of
	// a logout.
	StatusUnauthenticated Status = "unauthenticated"
	// StatusLoading marks an authentication attempt in flight.
	StatusLoading Status = "loading"
	// StatusAuthenticated means a user identity is established.
	StatusAuthenticated Status = "authenticated"
)

// AuthState is an immutable snapshot of the session. User is non-nil iff
// Status is StatusAuthenticated. TokenExpiresAt is epoch milliseconds, nil
// when no token is held. Token fields are a cache of the TokenStore record,
// refreshed on every mutation; the store remains the source of truth.
type AuthState struct {
	Status           Status        `json:"status"`
	User             *User         `json:"user"`
	AccessToken      string        `json:"access_token"`
	RefreshToken     string        `json:"refresh_token"`
	TokenExpiresAt   *int64        `json:"token_expires_at"`
	Error            *errors.Error `json:"error"`
	IsAuthenticating bool          `json:"is_authenticating"`
}

// TokenExpiry returns the cached token expiry, false when no token is held.
func (s AuthState) TokenExpiry() (time.Time, bool) {
	if s.TokenExpiresAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.TokenExpiresAt), true
}

// Listener receives a state snapshot after every mutation.
type Listener func(AuthState)

// StateMachine holds the in-memory authentication state and notifies
// subscribers on every transition. It optionally writes token mutations
// through to a TokenStore so the persisted record never drifts from the
// in-memory cache.
type StateMachine struct {
	mu        sync.RWMutex
	state     AuthState
	store     *TokenStore
	listeners map[int]Listener
	nextID    int
	now       nowFunc
	logger    Logger
}

// StateMachineOption customizes StateMachine construction.
type StateMachineOption func(*StateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock nowFunc) StateMachineOption {
	return func(m *StateMachine) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithStateMachineTokenStore wires the TokenStore that token mutations are
// written through to.
func WithStateMachineTokenStore(store *TokenStore) StateMachineOption {
	return func(m *StateMachine) {
		m.store = store
	}
}

// WithStateMachineLogger overrides the logger.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(m *StateMachine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewStateMachine returns a machine in the unauthenticated state.
func NewStateMachine(opts ...StateMachineOption) *StateMachine {
	m := &StateMachine{
		state:     AuthState{Status: StatusUnauthenticated},
		listeners: map[int]Listener{},
		now:       time.Now,
		logger:    defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// State returns a snapshot copy of the current state.
func (m *StateMachine) State() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneState(m.state)
}

// Subscribe registers a listener invoked with a snapshot after every
// mutation. The returned function removes it.
func (m *StateMachine) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// SetLoading marks an authentication attempt in flight. User and token
// fields are left untouched.
func (m *StateMachine) SetLoading() {
	m.mutate(func(s *AuthState) {
		s.Status = StatusLoading
		s.IsAuthenticating = true
	})
}

// SetAuthUser establishes an authenticated session: status, user and the
// full token set, with expiry computed ttl from now. Clears any prior
// error. Persistence is delegated to the wired TokenStore.
func (m *StateMachine) SetAuthUser(user *User, accessToken, refreshToken string, ttl time.Duration) {
	expiresAt := m.now().Add(ttl).UnixMilli()

	if m.store != nil {
		m.store.SetTokens(accessToken, refreshToken, ttl)
	}

	m.mutate(func(s *AuthState) {
		s.Status = StatusAuthenticated
		s.User = user
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
		s.TokenExpiresAt = &expiresAt
		s.IsAuthenticating = false
		s.Error = nil
	})
}

// UpdateAccessToken replaces the access token and expiry after a background
// refresh. Status, user and refresh token are untouched.
func (m *StateMachine) UpdateAccessToken(accessToken string, ttl time.Duration) {
	expiresAt := m.now().Add(ttl).UnixMilli()

	if m.store != nil {
		m.store.UpdateAccessToken(accessToken, ttl)
	}

	m.mutate(func(s *AuthState) {
		s.AccessToken = accessToken
		s.TokenExpiresAt = &expiresAt
	})
}

// SetError records a typed authentication error. Status is deliberately
// left where it is: an error observed while unauthenticated keeps the
// machine unauthenticated, and the UI distinguishes "failed" from "never
// tried" through the Error field.
func (m *StateMachine) SetError(err error) {
	richErr := ClassifyAuthError(err)
	m.mutate(func(s *AuthState) {
		s.Error = richErr
		s.IsAuthenticating = false
	})
}

// FailAuth ends a failed authentication attempt: the typed error is
// recorded and a machine left in loading by SetLoading returns to
// unauthenticated. Unlike SetError this is attempt-scoped: an established
// session observing an error keeps its status.
func (m *StateMachine) FailAuth(err error) {
	richErr := ClassifyAuthError(err)
	m.mutate(func(s *AuthState) {
		s.Error = richErr
		s.IsAuthenticating = false
		if s.Status == StatusLoading {
			s.Status = StatusUnauthenticated
		}
	})
}

// ClearError drops the recorded error, nothing else.
func (m *StateMachine) ClearError() {
	m.mutate(func(s *AuthState) {
		s.Error = nil
	})
}

// ClearAuth returns to the initial unauthenticated state and clears the
// persisted record from the wired TokenStore.
func (m *StateMachine) ClearAuth() {
	if m.store != nil {
		m.store.Clear()
	}
	m.mutate(func(s *AuthState) {
		*s = AuthState{Status: StatusUnauthenticated}
	})
}

// Reset is ClearAuth under the name UI bootstrap code expects.
func (m *StateMachine) Reset() {
	m.ClearAuth()
}

// AdoptTokens caches a token set without changing status or user, used
// when rehydrating from a persisted record before any identity is known.
func (m *StateMachine) AdoptTokens(accessToken, refreshToken string, expiresAt time.Time) {
	ms := expiresAt.UnixMilli()
	m.mutate(func(s *AuthState) {
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
		s.TokenExpiresAt = &ms
	})
}

// ExportState serializes the current snapshot for persistence round trips.
func (m *StateMachine) ExportState() ([]byte, error) {
	state := m.State()
	data, err := json.Marshal(state)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to serialize auth state")
	}
	return data, nil
}

// RestoreState merges a partial snapshot into the current state: only keys
// present in the payload overwrite, everything else is left untouched.
func (m *StateMachine) RestoreState(partial []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(partial, &fields); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "malformed auth state payload")
	}

	var applyErr error
	m.mutate(func(s *AuthState) {
		for key, raw := range fields {
			if err := applyStateField(s, key, raw); err != nil {
				applyErr = err
				return
			}
		}
	})
	return applyErr
}

func applyStateField(s *AuthState, key string, raw json.RawMessage) error {
	var err error
	switch key {
	case "status":
		err = json.Unmarshal(raw, &s.Status)
	case "user":
		err = json.Unmarshal(raw, &s.User)
	case "access_token":
		err = json.Unmarshal(raw, &s.AccessToken)
	case "refresh_token":
		err = json.Unmarshal(raw, &s.RefreshToken)
	case "token_expires_at":
		err = json.Unmarshal(raw, &s.TokenExpiresAt)
	case "error":
		err = json.Unmarshal(raw, &s.Error)
	case "is_authenticating":
		err = json.Unmarshal(raw, &s.IsAuthenticating)
	default:
		// unknown keys are ignored so older payloads keep restoring
	}
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "malformed auth state payload").
			WithMetadata(map[string]any{"field": key})
	}
	return nil
}

// hasStore reports whether token mutations are written through to a
// TokenStore.
func (m *StateMachine) hasStore() bool {
	return m.store != nil
}

// mutate applies fn under the write lock and notifies listeners with the
// resulting snapshot outside it.
func (m *StateMachine) mutate(fn func(*AuthState)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := cloneState(m.state)
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func cloneState(s AuthState) AuthState {
	out := s
	if s.User != nil {
		user := *s.User
		out.User = &user
	}
	if s.TokenExpiresAt != nil {
		ms := *s.TokenExpiresAt
		out.TokenExpiresAt = &ms
	}
	return out
}
