// Package config loads the YAML-backed settings for a candlefeed process:
// per-feed defaults plus a table of per-exchange network overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/candlefeed/internal/netconfig"
)

// Config is the top-level document loaded from a candlefeed.yaml file.
type Config struct {
	Feeds     []FeedConfig              `yaml:"feeds"`
	Defaults  DefaultsConfig            `yaml:"defaults"`
	Exchanges map[string]ExchangeConfig `yaml:"exchanges"`
}

// FeedConfig describes one exchange/pair/interval a process should run on
// startup.
type FeedConfig struct {
	Exchange string `yaml:"exchange"`
	Pair     string `yaml:"pair"`
	Interval string `yaml:"interval"`
	Mode     string `yaml:"mode"` // "auto", "streaming", or "polling"
	Capacity int    `yaml:"capacity"`
}

// DefaultsConfig holds process-wide defaults: Capacity fills in any
// FeedConfig whose Capacity is zero, and the remaining fields configure
// every feed's transport and circuit breakers.
type DefaultsConfig struct {
	Capacity          int     `yaml:"capacity"`
	TotalTimeoutMS    int     `yaml:"total_timeout_ms"`
	ConnectTimeoutMS  int     `yaml:"connect_timeout_ms"`
	MaxConnsPerHost   int     `yaml:"max_conns_per_host"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	RequestsBurst     int     `yaml:"requests_burst"`
	BreakersEnabled   bool    `yaml:"breakers_enabled"`
}

// ExchangeConfig holds per-exchange network routing: which environment
// (production/testnet) to use, optionally overridden per endpoint class.
type ExchangeConfig struct {
	Environment string            `yaml:"environment"` // "production" or "testnet"
	Overrides   map[string]string `yaml:"overrides"`    // endpoint class -> environment
}

// Load reads and validates a config document from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candlefeed config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse candlefeed config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid candlefeed config: %w", err)
	}
	return &cfg, nil
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Defaults.Capacity <= 0 {
		return fmt.Errorf("defaults.capacity must be positive, got %d", c.Defaults.Capacity)
	}
	if c.Defaults.MaxConnsPerHost <= 0 {
		return fmt.Errorf("defaults.max_conns_per_host must be positive, got %d", c.Defaults.MaxConnsPerHost)
	}
	if c.Defaults.RequestsPerSecond < 0 {
		return fmt.Errorf("defaults.requests_per_second cannot be negative, got %f", c.Defaults.RequestsPerSecond)
	}

	seen := map[string]bool{}
	for i, f := range c.Feeds {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("feeds[%d]: %w", i, err)
		}
		key := f.Exchange + "/" + f.Pair + "/" + f.Interval
		if seen[key] {
			return fmt.Errorf("feeds[%d]: duplicate feed %s", i, key)
		}
		seen[key] = true
	}

	for name, ex := range c.Exchanges {
		if err := ex.Validate(); err != nil {
			return fmt.Errorf("exchanges.%s: %w", name, err)
		}
	}

	return nil
}

// Validate ensures one feed entry names a usable exchange/pair/interval
// and a recognized mode.
func (f *FeedConfig) Validate() error {
	if f.Exchange == "" {
		return fmt.Errorf("exchange cannot be empty")
	}
	if f.Pair == "" {
		return fmt.Errorf("pair cannot be empty")
	}
	if f.Interval == "" {
		return fmt.Errorf("interval cannot be empty")
	}
	switch f.Mode {
	case "", "auto", "streaming", "polling":
	default:
		return fmt.Errorf("mode must be one of auto|streaming|polling, got %q", f.Mode)
	}
	if f.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative, got %d", f.Capacity)
	}
	return nil
}

// Validate ensures an exchange's network routing names recognized
// environments.
func (e *ExchangeConfig) Validate() error {
	switch e.Environment {
	case "", "production", "testnet":
	default:
		return fmt.Errorf("environment must be production or testnet, got %q", e.Environment)
	}
	for class, env := range e.Overrides {
		switch env {
		case "production", "testnet":
		default:
			return fmt.Errorf("override for %s must be production or testnet, got %q", class, env)
		}
	}
	return nil
}

// NetworkConfig builds a *netconfig.Config from this exchange's settings.
func (e *ExchangeConfig) NetworkConfig() *netconfig.Config {
	overrides := make(map[netconfig.EndpointClass]netconfig.Environment, len(e.Overrides))
	for class, env := range e.Overrides {
		overrides[netconfig.EndpointClass(class)] = netconfig.Environment(env)
	}
	if e.Environment == "testnet" {
		cfg := netconfig.Testnet()
		for k, v := range overrides {
			cfg.Overrides[k] = v
		}
		return cfg
	}
	return netconfig.Hybrid(overrides)
}
