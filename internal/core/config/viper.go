package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names bound by BindFlags, keyed by config key.
var flagKeys = map[string]string{
	"engine.pool_size":        "pool-size",
	"engine.cache_url":        "cache-url",
	"engine.data_dir":         "data-dir",
	"engine.standard":         "standard",
	"engine.standard_version": "standard-version",
	"engine.whodrug_path":     "whodrug",
	"engine.meddra_path":      "meddra",
	"server.host":             "host",
	"server.port":             "port",
}

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithFlags(configPath, nil)
}

// LoadConfigWithFlags is LoadConfig with command-line flags bound on top.
// Only flags present in flags and changed by the user take effect.
func LoadConfigWithFlags(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("engine.pool_size", def.Engine.PoolSize)
	v.SetDefault("engine.cache_url", def.Engine.CacheURL)
	v.SetDefault("engine.data_dir", def.Engine.DataDir)
	v.SetDefault("engine.standard", "")
	v.SetDefault("engine.standard_version", "")
	v.SetDefault("engine.whodrug_path", "")
	v.SetDefault("engine.meddra_path", "")
	v.SetDefault("engine.request_timeout", def.Engine.RequestTimeout.String())
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)

	// Bind environment variables with CORE_ prefix
	v.SetEnvPrefix("CORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Engine: EngineConfig{
			PoolSize:          v.GetInt("engine.pool_size"),
			CacheURL:          v.GetString("engine.cache_url"),
			DataDir:           v.GetString("engine.data_dir"),
			Standard:          v.GetString("engine.standard"),
			StandardVersion:   v.GetString("engine.standard_version"),
			WHODrugPath:       v.GetString("engine.whodrug_path"),
			MedDRAPath:        v.GetString("engine.meddra_path"),
			RequestTimeout:    v.GetDuration("engine.request_timeout"),
			OperatorOverrides: operatorOverrides(v),
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// operatorOverrides reads engine.operator_overrides. Viper lower-cases map
// keys; variable names are upper case, so keys are restored here.
func operatorOverrides(v *viper.Viper) map[string][]string {
	raw := v.GetStringMapStringSlice("engine.operator_overrides")
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for k, ops := range raw {
		out[strings.ToUpper(k)] = ops
	}
	return out
}

// validateConfig checks pool size, cache URL scheme, timeout and port range.
func validateConfig(cfg *Config) error {
	if cfg.Engine.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", cfg.Engine.PoolSize)
	}
	if cfg.Engine.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Engine.RequestTimeout)
	}
	if cfg.Engine.CacheURL != "" {
		u, err := url.Parse(cfg.Engine.CacheURL)
		if err != nil {
			return fmt.Errorf("invalid cache_url: %w", err)
		}
		switch u.Scheme {
		case "memory", "sqlite", "postgres", "postgresql":
		default:
			return fmt.Errorf("unsupported cache_url scheme %q", u.Scheme)
		}
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("library_api_key") || v.InConfig("engine.library_api_key") {
		return fmt.Errorf("library API keys not allowed in config files (use %s environment variable)", LibraryAPIKeyEnv)
	}
	return nil
}
