package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry claim from a JWT access token without
// verifying its signature. Verification belongs to the server; the client
// only needs the instant to schedule a refresh when the response carried no
// expires_in. Opaque (non-JWT) tokens and tokens without an exp claim
// report false.
func TokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	claims := &jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
