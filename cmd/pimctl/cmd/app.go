package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/graph"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/memory"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/adapter/outbound/msal"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/config"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/activation"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/inbound"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/service"
)

// app is the wired object graph shared by the role commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	tokens *memory.TokenStore

	session     *service.Session
	cache       *service.RoleCache
	activator   *service.ActivationService
	deactivator *service.DeactivationService
}

// loadConfig loads the configuration, applies --verbose and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Verbose = true
	}
	cfg.SetVerboseDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newLogger returns a text logger on stderr. stdout carries command output.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Debug("loaded config", "file", configFile)
	}
	return logger
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// activationDefaults converts the configured prompt defaults.
func activationDefaults(cfg *config.Config) activation.Input {
	return activation.Input{
		Duration:     activation.FromMinutes(cfg.Activation.DefaultHours*60 + cfg.Activation.DefaultMinutes),
		TicketSystem: cfg.Activation.TicketSystem,
	}
}

// retryPolicy converts the refresh settings.
func retryPolicy(cfg *config.Config) service.RetryPolicy {
	return service.RetryPolicy{
		InitialDelay: cfg.Refresh.InitialDelayDuration(),
		Attempts:     cfg.Refresh.Attempts,
		Backoff:      cfg.Refresh.BackoffDuration(),
		Multiplier:   cfg.Refresh.Multiplier,
	}
}

// newApp wires adapters and services. prompter answers the activation and
// deactivation questions. Call close when done.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, prompter inbound.Prompter) (*app, error) {
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)
	clock := service.SystemClock{}

	acquirer, err := msal.New(msal.Config{
		TenantID:       cfg.Tenant.TenantID,
		ClientID:       cfg.Tenant.ClientID,
		AuthorityHost:  cfg.Tenant.AuthorityHost,
		RedirectURI:    cfg.Tenant.RedirectURI,
		LoginHint:      cfg.Tenant.LoginHint,
		AmbientTimeout: cfg.Auth.InteractiveTimeoutDuration(),
		CacheFile:      cfg.Auth.TokenCachePath(),
	}, logger.With("component", "msal"))
	if err != nil {
		return nil, err
	}

	client := graph.NewClient(cfg.Graph.BaseURL, acquirer.TokenSource(),
		graph.WithTimeout(cfg.Graph.TimeoutDuration()),
		graph.WithRateLimit(cfg.Graph.RequestsPerSecond, cfg.Graph.Burst),
		graph.WithMaxRetries(cfg.Graph.MaxRetries),
		graph.WithMetrics(m),
		graph.WithLogger(logger.With("component", "graph")),
	)

	policyStore := memory.NewPolicyStore()
	tokenStore := memory.NewTokenStore()
	tokenStore.StartCleanup(ctx)

	scopes, err := service.NewScopeResolver(client, client, cfg.Cache.ScopeCacheSize, logger)
	if err != nil {
		tokenStore.Stop()
		return nil, err
	}
	aggregator := service.NewAggregator(logger,
		service.NewDirectoryRoleSource(client, scopes, logger),
		service.NewGroupRoleSource(client, scopes, logger),
		service.AzureResourceSource{},
	)
	resolver := service.NewPolicyResolver(client, policyStore, m, logger)
	fetcher := service.NewFetcher(aggregator, resolver, policyStore, clock, m, logger)
	roleCache := service.NewRoleCache(fetcher, cfg.Cache.RoleTTLDuration(), clock, m, logger)
	refresher := service.NewRefresher(roleCache, clock, retryPolicy(cfg), logger)

	tokenMgr := service.NewTokenManager(acquirer, tokenStore, clock, m, logger,
		service.WithInteractiveTimeout(cfg.Auth.InteractiveTimeoutDuration()),
		service.WithTokenLifetime(cfg.Auth.TokenSafetyMarginDuration(), cfg.Auth.MaxTokenLifetimeDuration()),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		tokens:   tokenStore,
		session: service.NewSession(client, policyStore, tokenMgr, roleCache, scopes, logger,
			service.WithSignOut(acquirer.SignOut)),
		cache: roleCache,
		activator: service.NewActivationService(client, tokenMgr, prompter, roleCache, refresher, clock,
			activationDefaults(cfg), m, logger),
		deactivator: service.NewDeactivationService(client, prompter, roleCache, refresher, m, logger),
	}, nil
}

// close stops background work and exports metrics if configured.
func (a *app) close() {
	a.tokens.Stop()
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.registry); err != nil {
		a.logger.Warn("metrics export failed", "path", a.cfg.Metrics.Textfile, "error", err)
	}
}

// fetchOptions builds the role-source selection from the source flags.
func fetchOptions(noDirectory, noGroups bool) service.FetchOptions {
	opts := service.DefaultFetchOptions()
	opts.Directory = !noDirectory
	opts.Groups = !noGroups
	return opts
}
