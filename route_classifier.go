package session

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-errors"
)

// RouteType is the access tier a request path falls into.
type RouteType string

const (
	// RoutePublic paths are served without authentication.
	RoutePublic RouteType = "public"
	// RouteAuthOnly paths are for unauthenticated visitors (login, register).
	RouteAuthOnly RouteType = "auth-only"
	// RouteProtected paths require a valid session.
	RouteProtected RouteType = "protected"
)

// RouteRule binds a path pattern to an access tier. Rules are evaluated in
// declaration order, first match wins.
//
// Pattern grammar:
//   - ":name" matches exactly one non-empty path segment
//   - a trailing "/:name*" matches the preceding prefix alone or anything
//     nested below it; a bare "/:name*" matches every path including "/"
//   - "*" matches arbitrary characters
type RouteRule struct {
	Pattern string    `json:"pattern"`
	Type    RouteType `json:"type"`
}

// ErrInvalidRoutePattern is returned when a pattern cannot be compiled.
var ErrInvalidRoutePattern = errors.New("invalid route pattern", errors.CategoryValidation).
	WithTextCode("INVALID_ROUTE_PATTERN").
	WithCode(errors.CodeBadRequest)

// RouteClassifier classifies request paths into access tiers. Patterns are
// compiled once at construction and reused for the classifier's lifetime.
type RouteClassifier struct {
	rules []compiledRule
}

type compiledRule struct {
	rule RouteRule
	re   *regexp.Regexp
}

// NewRouteClassifier compiles the ordered rule list. There is no implicit
// fallback: callers that want a catch-all append one explicitly, e.g.
// {Pattern: "/:path*", Type: RouteProtected}.
func NewRouteClassifier(rules []RouteRule) (*RouteClassifier, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := compileRoutePattern(rule.Pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}
	return &RouteClassifier{rules: compiled}, nil
}

// Classify returns the tier of the first matching rule in declaration
// order, or false when no rule matches.
func (c *RouteClassifier) Classify(path string) (RouteType, bool) {
	for _, cr := range c.rules {
		if cr.re.MatchString(path) {
			return cr.rule.Type, true
		}
	}
	return "", false
}

// Rules returns a copy of the rule list in evaluation order.
func (c *RouteClassifier) Rules() []RouteRule {
	out := make([]RouteRule, len(c.rules))
	for i, cr := range c.rules {
		out[i] = cr.rule
	}
	return out
}

// DefaultRouteRules is the reference rule table: API, framework asset and
// static paths are public, the login and register pages are auth-only.
// It carries no catch-all; append {"/:path*", RouteProtected} to treat
// everything else as protected.
func DefaultRouteRules() []RouteRule {
	return []RouteRule{
		{Pattern: "/api/:path*", Type: RoutePublic},
		{Pattern: "/_internal-assets/:path*", Type: RoutePublic},
		{Pattern: "/static/:path*", Type: RoutePublic},
		{Pattern: "/favicon.ico", Type: RoutePublic},
		{Pattern: "/login", Type: RouteAuthOnly},
		{Pattern: "/register", Type: RouteAuthOnly},
	}
}

// compileRoutePattern walks the pattern once, emitting a regexp fragment
// per token. No placeholder substitution passes: each rune is classified
// exactly once, so escaping cannot interact with parameter expansion.
func compileRoutePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrInvalidRoutePattern.WithMetadata(map[string]any{
			"reason": "empty pattern",
		})
	}

	var frags []string
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case ':':
			j := i + 1
			for j < len(runes) && isParamRune(runes[j]) {
				j++
			}
			if j == i+1 {
				return nil, ErrInvalidRoutePattern.WithMetadata(map[string]any{
					"pattern": pattern,
					"reason":  "parameter is missing a name",
				})
			}

			if j < len(runes) && runes[j] == '*' {
				if j+1 != len(runes) {
					return nil, ErrInvalidRoutePattern.WithMetadata(map[string]any{
						"pattern": pattern,
						"reason":  "wildcard parameter must end the pattern",
					})
				}
				// fold the preceding slash into the optional suffix so
				// "/api/:path*" accepts "/api" itself
				if len(frags) > 0 && frags[len(frags)-1] == "/" {
					frags = frags[:len(frags)-1]
				}
				frags = append(frags, "(?:/.*)?")
				i = j
				continue
			}

			frags = append(frags, "[^/]+")
			i = j - 1
		case '*':
			frags = append(frags, ".*")
		default:
			frags = append(frags, regexp.QuoteMeta(string(r)))
		}
	}

	re, err := regexp.Compile("^" + strings.Join(frags, "") + "$")
	if err != nil {
		return nil, errors.Wrap(err, ErrInvalidRoutePattern.Category, ErrInvalidRoutePattern.Message).
			WithTextCode(ErrInvalidRoutePattern.TextCode).
			WithMetadata(map[string]any{"pattern": pattern})
	}
	return re, nil
}

func isParamRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
