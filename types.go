package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// User is the authenticated principal as reported by the server.
type User struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Role      string    `json:"role,omitempty"`
	Active    bool      `json:"active,omitempty"`
}

// Credentials is the login payload forwarded to the AuthClient.
type Credentials struct {
	Identifier string
	Password   string
}

// Registration is the sign-up payload forwarded to the AuthClient.
type Registration struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// TokenPair is a set of credentials issued by the server. ExpiresIn is the
// access token lifetime in seconds; zero when the server omits it, in which
// case the expiry is derived from the token itself (see TokenExpiry).
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// AuthResult couples the issued tokens with the principal they belong to.
type AuthResult struct {
	User   *User
	Tokens TokenPair
}

// AuthClient is the network capability that performs the actual HTTP calls.
// Implementations live outside this module; everything here treats tokens
// as opaque strings.
type AuthClient interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, reg Registration) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// nowFunc is the injectable clock shared by components that compute expiry.
type nowFunc func() time.Time
