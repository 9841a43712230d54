package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const configName = "pimctl"

// InitViper points viper at configFile, or at the first pimctl.yaml/.yml in
// the search path when configFile is empty, and enables PIMCTL_* overrides.
// The search requires an explicit YAML extension so the pimctl binary itself
// is never picked up as a config file.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig then returns ConfigFileNotFoundError, which callers ignore.
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	// Environment variable support: PIMCTL_TENANT_CLIENT_ID
	viper.SetEnvPrefix("PIMCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches ., ~/.pimctl and the system config directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, "."+configName),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, configName))
		}
	} else {
		paths = append(paths, filepath.Join("/etc", configName))
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first pimctl.yaml or pimctl.yml found
// in paths, or "" when there is none.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// envKeys lists every scalar key that can be overridden from the environment.
var envKeys = []string{
	"tenant.tenant_id",
	"tenant.client_id",
	"tenant.authority_host",
	"tenant.redirect_uri",
	"tenant.login_hint",

	"graph.base_url",
	"graph.timeout",
	"graph.requests_per_second",
	"graph.burst",
	"graph.max_retries",

	"cache.role_ttl",
	"cache.scope_cache_size",

	"auth.interactive_timeout",
	"auth.token_safety_margin",
	"auth.max_token_lifetime",
	"auth.token_cache",

	"activation.default_hours",
	"activation.default_minutes",
	"activation.ticket_system",

	"refresh.initial_delay",
	"refresh.attempts",
	"refresh.backoff",
	"refresh.multiplier",

	"log.level",
	"metrics.textfile",
}

// bindNestedEnvKeys binds nested keys so Unmarshal sees environment values.
// Example: PIMCTL_GRAPH_MAX_RETRIES overrides graph.max_retries
func bindNestedEnvKeys() {
	for _, k := range envKeys {
		_ = viper.BindEnv(k)
	}
}

// LoadConfig is LoadConfigRaw followed by SetVerboseDefaults and Validate.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetVerboseDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration and applies defaults but does not
// validate. Callers apply CLI flag overrides, then call SetVerboseDefaults
// and Validate.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file: environment variables only.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the loaded file, or "" when only the environment
// was read.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
