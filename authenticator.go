package session

import (
	"context"
	"time"

	"github.com/goliatone/go-print"
)

// Authenticator drives the foreground session flows: login, register,
// logout, explicit refresh, and rehydration at bootstrap. It composes the
// external AuthClient with the state machine, token store and cookie
// mirror, keeping all three consistent on every transition.
type Authenticator struct {
	client     AuthClient
	store      *TokenStore
	machine    *StateMachine
	cookies    *CookieSync
	defaultTTL time.Duration
	now        nowFunc
	logger     Logger
}

// AuthenticatorOption customizes Authenticator construction.
type AuthenticatorOption func(*Authenticator)

// WithAuthenticatorCookieSync wires the cookie mirror updated on every
// token change.
func WithAuthenticatorCookieSync(cookies *CookieSync) AuthenticatorOption {
	return func(a *Authenticator) {
		a.cookies = cookies
	}
}

// WithAuthenticatorDefaultTTL sets the token lifetime assumed when the
// server omits expires_in and the token carries no exp claim.
func WithAuthenticatorDefaultTTL(ttl time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		if ttl > 0 {
			a.defaultTTL = ttl
		}
	}
}

// WithAuthenticatorClock injects a custom clock (useful for tests).
func WithAuthenticatorClock(clock nowFunc) AuthenticatorOption {
	return func(a *Authenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithAuthenticatorLogger overrides the logger.
func WithAuthenticatorLogger(logger Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuthenticator wires the foreground flows over the given collaborators.
func NewAuthenticator(client AuthClient, store *TokenStore, machine *StateMachine, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		client:     client,
		store:      store,
		machine:    machine,
		defaultTTL: 15 * time.Minute,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Login authenticates with the server and establishes the session. On
// failure the typed error is recorded in the state machine and returned;
// the status stays wherever it was.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (*User, error) {
	a.machine.SetLoading()

	res, err := a.client.Login(ctx, creds)
	if err != nil {
		return nil, a.fail("login", err)
	}
	return a.establish(res), nil
}

// Register creates an account and establishes the session, mirroring Login.
func (a *Authenticator) Register(ctx context.Context, reg Registration) (*User, error) {
	a.machine.SetLoading()

	res, err := a.client.Register(ctx, reg)
	if err != nil {
		return nil, a.fail("register", err)
	}
	return a.establish(res), nil
}

// Logout tears the session down. The remote call is best effort: a network
// failure is logged and swallowed because the local state must clear
// unconditionally; the user always ends up logged out on this device.
func (a *Authenticator) Logout(ctx context.Context) {
	if token := a.store.AccessToken(); token != "" {
		if err := a.client.Logout(ctx, token); err != nil {
			a.logger.Error("logout request failed, clearing local session anyway: %v", err)
		}
	}

	a.machine.ClearAuth()
	if !a.machine.hasStore() {
		a.store.Clear()
	}
	if a.cookies != nil {
		a.cookies.ClearAuthToken()
	}
}

// Refresh exchanges the stored refresh token for a new access token and
// writes it through everywhere. Unlike the background refresh, failures
// propagate to the caller so the UI can react; the session is not torn
// down here, that decision belongs to the caller.
func (a *Authenticator) Refresh(ctx context.Context) error {
	refreshToken := a.store.RefreshToken()
	if refreshToken == "" {
		return ErrNoSession
	}

	pair, err := a.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		richErr := ClassifyAuthError(err)
		a.logger.Error("refresh failed: %s", print.MaybePrettyJSON(richErr.Metadata))
		return richErr
	}

	ttl := a.resolveTTL(pair)
	a.store.UpdateAccessToken(pair.AccessToken, ttl)
	a.machine.UpdateAccessToken(pair.AccessToken, ttl)
	if a.cookies != nil {
		a.cookies.SetAuthToken(pair.AccessToken, ttl)
	}
	return nil
}

// Restore rehydrates the session caches from a still-valid persisted
// record at application bootstrap. The status stays unauthenticated until
// an identity is known; the cached tokens let the orchestrator start
// refreshing immediately. Reports whether a record was adopted.
func (a *Authenticator) Restore() bool {
	rec := a.store.GetTokens()
	if rec == nil {
		return false
	}

	expiry := rec.ExpiryTime()
	a.machine.AdoptTokens(rec.AccessToken, rec.RefreshToken, expiry)
	if a.cookies != nil {
		a.cookies.SetAuthToken(rec.AccessToken, expiry.Sub(a.now()))
	}
	return true
}

// establish records a successful authentication everywhere.
func (a *Authenticator) establish(res *AuthResult) *User {
	ttl := a.resolveTTL(res.Tokens)

	a.machine.SetAuthUser(res.User, res.Tokens.AccessToken, res.Tokens.RefreshToken, ttl)
	if !a.machine.hasStore() {
		a.store.SetTokens(res.Tokens.AccessToken, res.Tokens.RefreshToken, ttl)
	}
	if a.cookies != nil {
		a.cookies.SetAuthToken(res.Tokens.AccessToken, ttl)
	}
	return res.User
}

// fail classifies the error, ends the attempt, and hands it back.
func (a *Authenticator) fail(flow string, err error) error {
	richErr := ClassifyAuthError(err)
	a.logger.Error("%s failed: %s %s", flow, richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
	a.machine.FailAuth(richErr)
	return richErr
}

func (a *Authenticator) resolveTTL(pair TokenPair) time.Duration {
	if pair.ExpiresIn > 0 {
		return time.Duration(pair.ExpiresIn) * time.Second
	}
	if exp, ok := TokenExpiry(pair.AccessToken); ok {
		if ttl := exp.Sub(a.now()); ttl > 0 {
			return ttl
		}
	}
	return a.defaultTTL
}
