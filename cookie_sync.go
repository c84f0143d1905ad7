package session

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultAuthCookieName is the cookie the access token is mirrored into.
const DefaultAuthCookieName = "access_token"

// DefaultCookieTTL is the cookie lifetime when the caller does not supply
// one.
const DefaultCookieTTL = 7 * 24 * time.Hour

// CookieMedium is the raw cookie surface of the execution context: the
// document cookie string in a browser, a header pair at the edge. Read
// returns the raw Cookie header ("a=1; b=2"); Write receives a serialized
// cookie with attributes. A nil medium models a non-interactive context and
// turns every CookieSync operation into a no-op.
type CookieMedium interface {
	Read() string
	Write(cookie string)
}

// CookieSync mirrors the access token into a readable cookie so an edge
// process can classify requests without consulting TokenStore. The cookie
// is deliberately client-writable (no HttpOnly): this is an acknowledged
// MVP trade-off, production deployments should set the cookie server-side.
type CookieSync struct {
	medium CookieMedium
	name   string
	logger Logger
}

// CookieSyncOption customizes CookieSync construction.
type CookieSyncOption func(*CookieSync)

// WithCookieName overrides the cookie name.
func WithCookieName(name string) CookieSyncOption {
	return func(c *CookieSync) {
		if name != "" {
			c.name = name
		}
	}
}

// WithCookieSyncLogger overrides the logger.
func WithCookieSyncLogger(logger Logger) CookieSyncOption {
	return func(c *CookieSync) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCookieSync builds a sync over the given medium. A nil medium is valid;
// every operation no-ops.
func NewCookieSync(medium CookieMedium, opts ...CookieSyncOption) *CookieSync {
	c := &CookieSync{
		medium: medium,
		name:   DefaultAuthCookieName,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Name returns the cookie name in use.
func (c *CookieSync) Name() string {
	return c.name
}

// SetAuthToken writes the token cookie with Max-Age, Path=/ and
// SameSite=Lax. The optional ttl defaults to DefaultCookieTTL.
func (c *CookieSync) SetAuthToken(token string, ttl ...time.Duration) {
	if c.medium == nil {
		return
	}

	maxAge := DefaultCookieTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		maxAge = ttl[0]
	}
	c.medium.Write(serializeCookie(c.name, token, int(maxAge/time.Second)))
}

// GetAuthToken returns the mirrored token, or "" when the cookie is absent
// or holds an empty value.
func (c *CookieSync) GetAuthToken() string {
	if c.medium == nil {
		return ""
	}
	return lookupCookie(c.medium.Read(), c.name)
}

// ClearAuthToken expires the cookie. Cookies have no true delete, only a
// forced expiry, so this re-sets the entry with Max-Age=0.
func (c *CookieSync) ClearAuthToken() {
	if c.medium == nil {
		return
	}
	c.medium.Write(serializeCookie(c.name, "", 0))
}

// HasAuthToken reports whether a non-empty token is mirrored.
func (c *CookieSync) HasAuthToken() bool {
	return c.GetAuthToken() != ""
}

func serializeCookie(name, value string, maxAgeSeconds int) string {
	return fmt.Sprintf("%s=%s; Max-Age=%d; Path=/; SameSite=Lax",
		url.QueryEscape(name), url.QueryEscape(value), maxAgeSeconds)
}

// lookupCookie finds name in a raw Cookie header. Each pair is trimmed and
// percent-decoded; values that fail to decode are used raw rather than
// dropped.
func lookupCookie(header, name string) string {
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}

		key := decodeCookiePart(part[:eq])
		if key != name {
			continue
		}
		return decodeCookiePart(part[eq+1:])
	}
	return ""
}

func decodeCookiePart(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// MemoryCookieMedium is an in-process CookieMedium with browser-like
// semantics: writes with a positive Max-Age store the value, Max-Age<=0
// drops it, and Read renders the remaining pairs as a Cookie header. Used
// in tests and SSR shims.
type MemoryCookieMedium struct {
	mu     sync.Mutex
	values map[string]string
	order  []string
	// LastWritten keeps the most recent serialized cookie for inspection.
	LastWritten string
}

var _ CookieMedium = (*MemoryCookieMedium)(nil)

func NewMemoryCookieMedium() *MemoryCookieMedium {
	return &MemoryCookieMedium{values: map[string]string{}}
}

func (m *MemoryCookieMedium) Read() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := make([]string, 0, len(m.order))
	for _, name := range m.order {
		parts = append(parts, fmt.Sprintf("%s=%s", name, m.values[name]))
	}
	return strings.Join(parts, "; ")
}

func (m *MemoryCookieMedium) Write(cookie string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastWritten = cookie

	segments := strings.Split(cookie, ";")
	if len(segments) == 0 {
		return
	}

	nameValue := strings.TrimSpace(segments[0])
	eq := strings.IndexByte(nameValue, '=')
	if eq < 0 {
		return
	}
	name, value := nameValue[:eq], nameValue[eq+1:]

	expired := false
	for _, attr := range segments[1:] {
		attr = strings.TrimSpace(attr)
		if maxAge, ok := strings.CutPrefix(attr, "Max-Age="); ok && maxAge == "0" {
			expired = true
		}
	}

	if expired {
		m.remove(name)
		return
	}
	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = value
}

func (m *MemoryCookieMedium) remove(name string) {
	if _, exists := m.values[name]; !exists {
		return
	}
	delete(m.values, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
