package session

import (
	"context"
	"sync"
	"time"
)

// OrchestratorStatus is the orchestrator's own lifecycle state, independent
// of the authentication status it maintains.
type OrchestratorStatus string

const (
	OrchestratorIdle    OrchestratorStatus = "idle"
	OrchestratorRunning OrchestratorStatus = "running"
)

// DefaultRefreshMargin is subtracted from the token expiry to schedule a
// refresh before the token actually lapses.
const DefaultRefreshMargin = 60 * time.Second

// DefaultMaxRefreshRetries bounds consecutive refresh failures before the
// orchestrator gives up and goes idle.
const DefaultMaxRefreshRetries = 3

// Orchestrator keeps the access token fresh without UI involvement. It
// holds at most one outstanding timer and allows at most one refresh in
// flight. Construct one instance at application bootstrap and pass it where
// needed; there is deliberately no package-level singleton.
type Orchestrator struct {
	client  AuthClient
	store   *TokenStore
	machine *StateMachine

	margin     time.Duration
	defaultTTL time.Duration
	maxRetries int
	now        nowFunc
	logger     Logger

	mu         sync.Mutex
	running    bool
	generation uint64
	timer      *time.Timer
	failures   int
	ctx        context.Context
}

// OrchestratorOption customizes Orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithRefreshMargin sets how long before expiry a refresh fires.
func WithRefreshMargin(margin time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if margin > 0 {
			o.margin = margin
		}
	}
}

// WithMaxRefreshRetries bounds consecutive refresh failures.
func WithMaxRefreshRetries(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithOrchestratorDefaultTTL sets the access token lifetime assumed when
// the server omits expires_in and the token carries no exp claim.
func WithOrchestratorDefaultTTL(ttl time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// WithOrchestratorClock injects a custom clock (useful for tests).
func WithOrchestratorClock(clock nowFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.now = clock
		}
	}
}

// WithOrchestratorLogger overrides the logger.
func WithOrchestratorLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator wires the refresh loop over the given collaborators.
func NewOrchestrator(client AuthClient, store *TokenStore, machine *StateMachine, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:     client,
		store:      store,
		machine:    machine,
		margin:     DefaultRefreshMargin,
		defaultTTL: 15 * time.Minute,
		maxRetries: DefaultMaxRefreshRetries,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Start begins the refresh lifecycle. Idempotent: calling Start on a
// running orchestrator changes nothing and never creates a second schedule.
// ctx is retained for the background refresh calls.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o.running = true
	o.generation++
	o.failures = 0
	o.ctx = ctx
	o.scheduleLocked(o.generation, 0)
}

// Stop cancels any pending refresh. Safe to call when never started. A
// refresh already in flight may complete, but its result is dropped: the
// generation recorded at dispatch no longer matches.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.running = false
	o.generation++
	o.failures = 0
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// Status reports the orchestrator's lifecycle state.
func (o *Orchestrator) Status() OrchestratorStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return OrchestratorRunning
	}
	return OrchestratorIdle
}

// scheduleLocked arms the single timer for the given generation. With a
// positive delayOverride the timer fires after that long (failure backoff);
// otherwise the delay is computed from the stored token expiry minus the
// margin. Callers hold o.mu.
func (o *Orchestrator) scheduleLocked(gen uint64, delayOverride time.Duration) {
	rec := o.store.GetTokens()
	if rec == nil {
		o.logger.Debug("orchestrator: no valid token record, nothing to schedule")
		return
	}

	delay := delayOverride
	if delay <= 0 {
		delay = rec.ExpiryTime().Sub(o.now()) - o.margin
		if delay < 0 {
			delay = 0
		}
	}

	o.logger.Debug("orchestrator: refresh scheduled in %s", delay)
	o.timer = time.AfterFunc(delay, func() {
		o.fire(gen)
	})
}

// fire performs one refresh attempt for the generation that scheduled it.
func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	if !o.running || gen != o.generation {
		o.mu.Unlock()
		return
	}
	ctx := o.ctx
	refreshToken := o.store.RefreshToken()
	if refreshToken == "" {
		// nothing to refresh with: this lifecycle is over, same as giving
		// up after repeated failures
		o.logger.Error("orchestrator: refresh token gone, stopping")
		o.running = false
		o.generation++
		o.timer = nil
		o.mu.Unlock()
		o.machine.SetError(ErrNoSession)
		return
	}
	o.mu.Unlock()

	pair, err := o.client.RefreshToken(ctx, refreshToken)

	o.mu.Lock()

	// ownership check: results from a stopped or restarted lifecycle are
	// discarded without side effects
	if !o.running || gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.timer = nil

	if err != nil {
		o.failures++
		richErr := ClassifyAuthError(err)
		o.logger.Error("orchestrator: refresh failed (%d/%d): %v", o.failures, o.maxRetries, richErr)

		if o.failures >= o.maxRetries {
			o.logger.Error("orchestrator: giving up after %d failures", o.failures)
			o.running = false
			o.generation++
		} else {
			// back off in multiples of the margin, never tighter than it
			backoff := o.margin << (o.failures - 1)
			if max := o.margin * 8; backoff > max {
				backoff = max
			}
			o.scheduleLocked(gen, backoff)
		}
		o.mu.Unlock()

		// notify outside the lock so listeners may call back into the
		// orchestrator without deadlocking
		o.machine.SetError(richErr)
		return
	}

	o.failures = 0
	ttl := o.resolveTTL(pair)

	// TokenStore is the source of truth; reschedule off the updated record
	o.store.UpdateAccessToken(pair.AccessToken, ttl)
	o.scheduleLocked(gen, 0)
	o.mu.Unlock()

	// the machine refreshes its cache; its own write-through repeats the
	// store update with identical values, which is harmless
	o.machine.UpdateAccessToken(pair.AccessToken, ttl)
}

func (o *Orchestrator) resolveTTL(pair TokenPair) time.Duration {
	if pair.ExpiresIn > 0 {
		return time.Duration(pair.ExpiresIn) * time.Second
	}
	if exp, ok := TokenExpiry(pair.AccessToken); ok {
		if ttl := exp.Sub(o.now()); ttl > 0 {
			return ttl
		}
	}
	return o.defaultTTL
}
