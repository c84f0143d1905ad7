// Package routeguard adapts RouteClassifier and the mirrored access token
// cookie to go-router handlers, guarding requests before a page is served.
// It only inspects token presence; token validity is the server's problem.
package routeguard

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session"
)

type Config struct {
	// Classifier is required
	Classifier *session.RouteClassifier
	// CookieName holds the mirrored access token,
	// session.DefaultAuthCookieName when empty
	CookieName string
	// LoginPath is where unauthenticated visitors of protected paths go
	LoginPath string
	// HomePath is where authenticated visitors of auth-only paths go
	HomePath string
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			tier, matched := cfg.Classifier.Classify(c.Path())
			hasToken := c.Cookies(cfg.CookieName) != ""

			switch Decide(tier, matched, hasToken) {
			case ActionRedirectLogin:
				return c.Redirect(cfg.LoginPath, http.StatusFound)
			case ActionRedirectHome:
				return c.Redirect(cfg.HomePath, http.StatusFound)
			default:
				return c.Next()
			}
		}
	}
}

// Action is the guard's verdict for a request.
type Action int

const (
	ActionNext Action = iota
	ActionRedirectLogin
	ActionRedirectHome
)

// Decide maps a classification and token presence to a guard action.
// Unmatched paths pass through: the classifier carries no implicit
// catch-all, so supplying one is the deployment's call, not ours.
func Decide(tier session.RouteType, matched, hasToken bool) Action {
	if !matched {
		return ActionNext
	}

	switch tier {
	case session.RouteAuthOnly:
		if hasToken {
			return ActionRedirectHome
		}
	case session.RouteProtected:
		if !hasToken {
			return ActionRedirectLogin
		}
	}
	return ActionNext
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Classifier == nil {
		panic("ROUTEGUARD: middleware configuration: Classifier is required.")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = session.DefaultAuthCookieName
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	return cfg
}
