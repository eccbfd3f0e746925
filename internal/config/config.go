// Package config loads explorer settings from a YAML file, an optional .env
// file and EXPLORER_* environment variables.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethpm/explorer/chains"
)

// Config is the full explorer configuration.
type Config struct {
	Gateway         string                 `mapstructure:"gateway"`
	InfuraProjectID string                 `mapstructure:"infura_project_id"`
	DirectoryPath   string                 `mapstructure:"directory_path"`
	Concurrency     int                    `mapstructure:"concurrency"`
	Fetch           FetchConfig            `mapstructure:"fetch"`
	Cache           CacheConfig            `mapstructure:"cache"`
	Logging         LoggingConfig          `mapstructure:"logging"`
	Chains          map[string]ChainConfig `mapstructure:"chains"`
}

type FetchConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	UserAgent        string        `mapstructure:"user_agent"`
	MaxBytes         int64         `mapstructure:"max_bytes"`
	BreakerThreshold int64         `mapstructure:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"` // 0 keeps entries forever
	Prefix  string        `mapstructure:"prefix"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ChainConfig is one row of the chain table, keyed by chain id.
type ChainConfig struct {
	Name         string `mapstructure:"name"`
	Endpoint     string `mapstructure:"endpoint"`
	ExplorerHost string `mapstructure:"explorer_host"`
	Genesis      string `mapstructure:"genesis"`
}

// ChainTable builds the chain table. Without configured chains it is the
// default four-network table.
func (c *Config) ChainTable() (*chains.Table, error) {
	if len(c.Chains) == 0 {
		return chains.NewTable(chains.DefaultEntries(c.InfuraProjectID)...)
	}

	ids := make([]string, 0, len(c.Chains))
	for id := range c.Chains {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]chains.Entry, 0, len(ids))
	for _, id := range ids {
		cc := c.Chains[id]
		entries = append(entries, chains.Entry{
			ChainID:      id,
			Name:         cc.Name,
			EndpointURL:  cc.Endpoint,
			ExplorerHost: cc.ExplorerHost,
			Genesis:      cc.Genesis,
		})
	}
	return chains.NewTable(entries...)
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Gateway, "http://") && !strings.HasPrefix(cfg.Gateway, "https://") {
		return fmt.Errorf("gateway must be an http(s) URL, got %q", cfg.Gateway)
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if cfg.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative")
	}
	if cfg.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive")
	}
	if cfg.Cache.Enabled && cfg.Cache.Redis.Address == "" {
		return fmt.Errorf("cache.redis.address is required when the cache is enabled")
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if _, err := cfg.ChainTable(); err != nil {
		return fmt.Errorf("chains: %w", err)
	}
	return nil
}
