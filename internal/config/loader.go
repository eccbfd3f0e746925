package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ethpm/explorer/fetch"
	"github.com/ethpm/explorer/internal/core"
	"github.com/ethpm/explorer/internal/ident"
)

// EnvPrefix prefixes every environment override, e.g. EXPLORER_FETCH_TIMEOUT.
const EnvPrefix = "EXPLORER"

// InfuraEnv is read when no Infura project id is configured.
const InfuraEnv = "WEB3_INFURA_PROJECT_ID"

var defaults = map[string]any{
	"gateway":                 ident.DefaultGateway,
	"infura_project_id":       "",
	"directory_path":          "directory_store.json",
	"concurrency":             core.DefaultConcurrency,
	"fetch.timeout":           30 * time.Second,
	"fetch.max_retries":       5,
	"fetch.base_delay":        50 * time.Millisecond,
	"fetch.user_agent":        "ethpm-explorer/1.0",
	"fetch.max_bytes":         int64(fetch.DefaultMaxBytes),
	"fetch.breaker_threshold": int64(fetch.DefaultBreakerThreshold),
	"fetch.breaker_cooldown":  fetch.DefaultBreakerCooldown,
	"cache.enabled":           false,
	"cache.ttl":               time.Duration(0),
	"cache.prefix":            "explorer:manifest:",
	"cache.redis.address":     "localhost:6379",
	"cache.redis.password":    "",
	"cache.redis.db":          0,
	"logging.level":           "info",
	"logging.format":          "console",
}

// Load reads the configuration. path names a YAML file; when empty,
// explorer.yaml is searched for in ./configs and the working directory and
// may be absent. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	loadEnvFile(".env")
	return load(viper.New(), path)
}

// LoadFromFile reads exactly the given YAML file plus environment overrides.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	return load(viper.New(), path)
}

// Default returns the built-in configuration without reading files or the
// EXPLORER_* environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	applyDefaults(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}

func load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("explorer")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.InfuraProjectID == "" {
		cfg.InfuraProjectID = os.Getenv(InfuraEnv)
	}
	if !strings.HasSuffix(cfg.Gateway, "/") {
		cfg.Gateway += "/"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// loadEnvFile loads KEY=value pairs into the environment without
// overriding variables that are already set. A missing file is ignored.
func loadEnvFile(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}
