package session

import (
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// Config carries the session layer tunables. Durations are seconds in the
// file format; use the *Duration helpers in code.
type Config struct {
	CookieName        string            `toml:"cookie_name"`
	CookieMaxAge      int               `toml:"cookie_max_age"`
	StorageKey        string            `toml:"storage_key"`
	RefreshMargin     int               `toml:"refresh_margin"`
	DefaultTokenTTL   int               `toml:"default_token_ttl"`
	MaxRefreshRetries int               `toml:"max_refresh_retries"`
	Routes            []RouteRuleConfig `toml:"routes"`
}

// RouteRuleConfig is the file representation of a RouteRule.
type RouteRuleConfig struct {
	Pattern string `toml:"pattern"`
	Type    string `toml:"type"`
}

func (r RouteRuleConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Pattern, validation.Required),
		validation.Field(&r.Type, validation.Required, validation.In(
			string(RoutePublic),
			string(RouteAuthOnly),
			string(RouteProtected),
		)),
	)
}

// DefaultConfig returns the reference configuration: the default route
// table plus an explicit protected catch-all.
func DefaultConfig() Config {
	routes := make([]RouteRuleConfig, 0, 8)
	for _, rule := range DefaultRouteRules() {
		routes = append(routes, RouteRuleConfig{
			Pattern: rule.Pattern,
			Type:    string(rule.Type),
		})
	}
	routes = append(routes, RouteRuleConfig{Pattern: "/:path*", Type: string(RouteProtected)})

	return Config{
		CookieName:        DefaultAuthCookieName,
		CookieMaxAge:      int(DefaultCookieTTL / time.Second),
		StorageKey:        DefaultStorageKey,
		RefreshMargin:     int(DefaultRefreshMargin / time.Second),
		DefaultTokenTTL:   15 * 60,
		MaxRefreshRetries: DefaultMaxRefreshRetries,
		Routes:            routes,
	}
}

// LoadConfig reads a TOML file over the defaults: keys absent from the
// file keep their default value. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "failed to load session config").
			WithMetadata(map[string]any{"path": path})
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.CookieName, validation.Required),
		validation.Field(&c.CookieMaxAge, validation.Required, validation.Min(1)),
		validation.Field(&c.StorageKey, validation.Required),
		validation.Field(&c.RefreshMargin, validation.Required, validation.Min(1)),
		validation.Field(&c.DefaultTokenTTL, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxRefreshRetries, validation.Required, validation.Min(1)),
		validation.Field(&c.Routes),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid session config")
	}
	return nil
}

// RouteRules converts the configured table into classifier rules.
func (c Config) RouteRules() []RouteRule {
	rules := make([]RouteRule, 0, len(c.Routes))
	for _, r := range c.Routes {
		rules = append(rules, RouteRule{Pattern: r.Pattern, Type: RouteType(r.Type)})
	}
	return rules
}

func (c Config) CookieTTL() time.Duration {
	return time.Duration(c.CookieMaxAge) * time.Second
}

func (c Config) RefreshMarginDuration() time.Duration {
	return time.Duration(c.RefreshMargin) * time.Second
}

func (c Config) DefaultTokenTTLDuration() time.Duration {
	return time.Duration(c.DefaultTokenTTL) * time.Second
}
