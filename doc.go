// Package session provides the client side of an authentication session:
// token persistence, reactive auth state, background refresh, and request
// path classification for edge-side route guarding.
//
// Token lifecycle:
//   - TokenStore owns the persisted {access, refresh, expiry} record. It
//     writes the whole record on every mutation and treats an expired
//     record as absent. Storage media are pluggable (memory, OS keyring,
//     SQLite via Bun); a nil medium models an SSR context where every
//     operation fails soft.
//   - Orchestrator keeps the access token fresh without UI involvement.
//     It schedules a single refresh ahead of expiry, invokes the external
//     AuthClient capability, and writes results through TokenStore and the
//     StateMachine. Start is idempotent and Stop suppresses the effects of
//     any refresh still in flight.
//
// Reactive state:
//   - StateMachine holds the canonical AuthState snapshot
//     (unauthenticated, loading, authenticated) and notifies subscribers
//     on every mutation. UI layers adapt the listener callback to their
//     own rendering model. Snapshots serialize to JSON with partial-merge
//     restore for persistence round trips.
//
// Route guarding:
//   - RouteClassifier compiles an ordered pattern list once and classifies
//     paths into public, auth-only, and protected tiers, first match wins.
//     CookieSync mirrors the access token into a readable cookie so an
//     edge process can guard requests without consulting TokenStore.
//     middleware/routeguard adapts both to go-router handlers.
package session
