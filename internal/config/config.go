// Package config provides configuration types and loading for pimctl.
//
// Configuration comes from pimctl.yaml and PIMCTL_* environment variables.
// Only the tenant and client ids are mandatory; everything else has a
// default suitable for interactive use.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the top-level configuration.
type Config struct {
	// Tenant identifies the Entra ID tenant and the public client used to sign in.
	Tenant TenantConfig `yaml:"tenant" mapstructure:"tenant"`

	// Graph configures the Microsoft Graph client.
	Graph GraphConfig `yaml:"graph" mapstructure:"graph"`

	// Cache configures the role list and scope caches.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Auth configures authentication-context token handling.
	Auth AuthConfig `yaml:"auth" mapstructure:"auth"`

	// Activation holds the defaults offered by the activation prompt.
	Activation ActivationConfig `yaml:"activation" mapstructure:"activation"`

	// Refresh configures the post-mutation refetch loop.
	Refresh RefreshConfig `yaml:"refresh" mapstructure:"refresh"`

	// Log configures the slog handler.
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Metrics configures the optional prometheus textfile export.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Verbose forces debug logging. Set from the --verbose flag.
	Verbose bool `yaml:"-" mapstructure:"verbose"`
}

// TenantConfig identifies the tenant and public client application.
type TenantConfig struct {
	// TenantID is the tenant GUID or a verified domain.
	TenantID string `yaml:"tenant_id" mapstructure:"tenant_id" validate:"required"`

	// ClientID is the public client application (app registration) id.
	ClientID string `yaml:"client_id" mapstructure:"client_id" validate:"required,uuid"`

	// AuthorityHost is the sign-in endpoint (default: https://login.microsoftonline.com).
	AuthorityHost string `yaml:"authority_host" mapstructure:"authority_host" validate:"required,url"`

	// RedirectURI is the loopback redirect registered on the app (default: http://localhost).
	RedirectURI string `yaml:"redirect_uri" mapstructure:"redirect_uri" validate:"required,url"`

	// LoginHint preselects the account in the sign-in prompt.
	LoginHint string `yaml:"login_hint" mapstructure:"login_hint"`
}

// GraphConfig configures the Graph REST client.
type GraphConfig struct {
	// BaseURL is the Graph root (default: https://graph.microsoft.com/v1.0).
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`

	// Timeout bounds each HTTP request (default: "30s").
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"duration"`

	// RequestsPerSecond and Burst configure the client-side rate limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `yaml:"burst" mapstructure:"burst" validate:"min=1"`

	// MaxRetries is how often a throttled request is retried (default: 2).
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" validate:"min=0,max=10"`
}

// CacheConfig configures caching.
type CacheConfig struct {
	// RoleTTL is how long a fetched role list is reused (default: "5m").
	RoleTTL string `yaml:"role_ttl" mapstructure:"role_ttl" validate:"duration"`

	// ScopeCacheSize bounds the administrative-unit and group-scope caches.
	ScopeCacheSize int `yaml:"scope_cache_size" mapstructure:"scope_cache_size" validate:"min=1"`
}

// AuthConfig configures interactive authentication-context sign-in.
type AuthConfig struct {
	// InteractiveTimeout bounds one browser sign-in (default: "2m").
	InteractiveTimeout string `yaml:"interactive_timeout" mapstructure:"interactive_timeout" validate:"duration"`

	// TokenSafetyMargin is subtracted from the token expiry (default: "5m").
	TokenSafetyMargin string `yaml:"token_safety_margin" mapstructure:"token_safety_margin" validate:"duration"`

	// MaxTokenLifetime caps how long a context token is cached (default: "45m").
	MaxTokenLifetime string `yaml:"max_token_lifetime" mapstructure:"max_token_lifetime" validate:"duration"`

	// TokenCache is the file holding the MSAL account and refresh tokens
	// between runs (default: ~/.pimctl/msal_cache.json). "none" keeps the
	// cache in memory.
	TokenCache string `yaml:"token_cache" mapstructure:"token_cache"`
}

// ActivationConfig holds prompt defaults.
type ActivationConfig struct {
	DefaultHours   int `yaml:"default_hours" mapstructure:"default_hours" validate:"min=0,max=24"`
	DefaultMinutes int `yaml:"default_minutes" mapstructure:"default_minutes" validate:"min=0,max=59"`

	// TicketSystem is offered when a policy requires ticket information.
	TicketSystem string `yaml:"ticket_system" mapstructure:"ticket_system"`
}

// RefreshConfig configures the refetch loop after activation or deactivation.
type RefreshConfig struct {
	InitialDelay string  `yaml:"initial_delay" mapstructure:"initial_delay" validate:"duration"`
	Attempts     int     `yaml:"attempts" mapstructure:"attempts" validate:"min=1,max=10"`
	Backoff      string  `yaml:"backoff" mapstructure:"backoff" validate:"duration"`
	Multiplier   float64 `yaml:"multiplier" mapstructure:"multiplier" validate:"gte=1"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: "info").
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	// Textfile is written in the prometheus text format on exit. Empty disables it.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.Tenant.AuthorityHost == "" {
		c.Tenant.AuthorityHost = "https://login.microsoftonline.com"
	}
	if c.Tenant.RedirectURI == "" {
		c.Tenant.RedirectURI = "http://localhost"
	}

	if c.Graph.BaseURL == "" {
		c.Graph.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if c.Graph.Timeout == "" {
		c.Graph.Timeout = "30s"
	}
	if c.Graph.RequestsPerSecond == 0 {
		c.Graph.RequestsPerSecond = 10
	}
	if c.Graph.Burst == 0 {
		c.Graph.Burst = 5
	}
	if c.Graph.MaxRetries == 0 {
		c.Graph.MaxRetries = 2
	}

	if c.Cache.RoleTTL == "" {
		c.Cache.RoleTTL = "5m"
	}
	if c.Cache.ScopeCacheSize == 0 {
		c.Cache.ScopeCacheSize = 256
	}

	if c.Auth.InteractiveTimeout == "" {
		c.Auth.InteractiveTimeout = "2m"
	}
	if c.Auth.TokenSafetyMargin == "" {
		c.Auth.TokenSafetyMargin = "5m"
	}
	if c.Auth.MaxTokenLifetime == "" {
		c.Auth.MaxTokenLifetime = "45m"
	}
	if c.Auth.TokenCache == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Auth.TokenCache = filepath.Join(home, ".pimctl", "msal_cache.json")
		}
	}

	if c.Activation.DefaultHours == 0 && c.Activation.DefaultMinutes == 0 {
		c.Activation.DefaultHours = 8
	}

	if c.Refresh.InitialDelay == "" {
		c.Refresh.InitialDelay = "5s"
	}
	if c.Refresh.Attempts == 0 {
		c.Refresh.Attempts = 3
	}
	if c.Refresh.Backoff == "" {
		c.Refresh.Backoff = "3s"
	}
	if c.Refresh.Multiplier == 0 {
		c.Refresh.Multiplier = 1.5
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// SetVerboseDefaults forces debug logging when Verbose is set.
// Call after CLI flags have been applied.
func (c *Config) SetVerboseDefaults() {
	if c.Verbose {
		c.Log.Level = "debug"
	}
}

// duration parses a validated duration string. Invalid input yields zero,
// which every consumer replaces with its own default.
func duration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// TimeoutDuration returns Timeout parsed.
func (g GraphConfig) TimeoutDuration() time.Duration { return duration(g.Timeout) }

// RoleTTLDuration returns RoleTTL parsed.
func (c CacheConfig) RoleTTLDuration() time.Duration { return duration(c.RoleTTL) }

// TokenCachePath returns the token cache file, or "" when persistence is off.
func (a AuthConfig) TokenCachePath() string {
	if strings.EqualFold(a.TokenCache, "none") {
		return ""
	}
	return a.TokenCache
}

// InteractiveTimeoutDuration returns InteractiveTimeout parsed.
func (a AuthConfig) InteractiveTimeoutDuration() time.Duration {
	return duration(a.InteractiveTimeout)
}

// TokenSafetyMarginDuration returns TokenSafetyMargin parsed.
func (a AuthConfig) TokenSafetyMarginDuration() time.Duration {
	return duration(a.TokenSafetyMargin)
}

// MaxTokenLifetimeDuration returns MaxTokenLifetime parsed.
func (a AuthConfig) MaxTokenLifetimeDuration() time.Duration {
	return duration(a.MaxTokenLifetime)
}

// InitialDelayDuration returns InitialDelay parsed.
func (r RefreshConfig) InitialDelayDuration() time.Duration { return duration(r.InitialDelay) }

// BackoffDuration returns Backoff parsed.
func (r RefreshConfig) BackoffDuration() time.Duration { return duration(r.Backoff) }
