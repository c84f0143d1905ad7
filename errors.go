package session

import (
	"context"
	"net"

	"github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeUserInactive       = "USER_INACTIVE"
	textCodeNetworkError       = "NETWORK_ERROR"
	textCodeUnknownError       = "UNKNOWN_ERROR"
	textCodeNoSession          = "NO_SESSION"
)

// ErrInvalidCredentials is returned when the server rejects an identifier
// and password combination.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUserInactive is returned when the account exists but may not log in.
var ErrUserInactive = errors.New("user account is inactive", errors.CategoryAuth).
	WithTextCode(textCodeUserInactive).
	WithCode(errors.CodeForbidden)

// ErrNetwork wraps transport failures talking to the auth server.
var ErrNetwork = errors.New("network error during authentication", errors.CategoryOperation).
	WithTextCode(textCodeNetworkError)

// ErrUnknown is the catch-all for failures the taxonomy does not cover.
var ErrUnknown = errors.New("unknown authentication error", errors.CategoryInternal).
	WithTextCode(textCodeUnknownError).
	WithCode(errors.CodeInternal)

// ErrNoSession is returned when an operation needs stored tokens and the
// record is missing or expired.
var ErrNoSession = errors.New("no active session", errors.CategoryAuth).
	WithTextCode(textCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// ClassifyAuthError coerces an arbitrary failure into the typed taxonomy the
// state machine stores. Rich errors already carrying one of our text codes
// pass through untouched.
func ClassifyAuthError(err error) *errors.Error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case textCodeInvalidCredentials, textCodeUserInactive,
			textCodeNetworkError, textCodeUnknownError, textCodeNoSession:
			return richErr
		}
	}

	if isNetworkFailure(err) {
		return errors.Wrap(err, ErrNetwork.Category, ErrNetwork.Message).
			WithTextCode(ErrNetwork.TextCode)
	}

	return errors.Wrap(err, ErrUnknown.Category, ErrUnknown.Message).
		WithTextCode(ErrUnknown.TextCode).
		WithCode(ErrUnknown.Code)
}

// IsInvalidCredentials reports whether err carries the invalid credentials code.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, textCodeInvalidCredentials)
}

// IsUserInactive reports whether err carries the inactive account code.
func IsUserInactive(err error) bool {
	return hasTextCode(err, textCodeUserInactive)
}

// IsNetworkError reports whether err was classified as a transport failure.
func IsNetworkError(err error) bool {
	return hasTextCode(err, textCodeNetworkError)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func isNetworkFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
