// Package netconfig selects production vs. testnet URLs per endpoint
// class, mirroring candles_feed.core.network_config's per-class routing.
package netconfig

// EndpointClass names one of the endpoint families a venue exposes.
type EndpointClass string

const (
	EndpointCandles EndpointClass = "candles"
	EndpointTicker  EndpointClass = "ticker"
	EndpointTrades  EndpointClass = "trades"
	EndpointOrders  EndpointClass = "orders"
	EndpointAccount EndpointClass = "account"
)

// Environment is one of the two network environments a venue exposes.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvTestnet    Environment = "testnet"
)

// Config controls URL selection for an adapter instance. The zero value is
// not valid; build one with Production, Testnet, Hybrid or ForTesting.
type Config struct {
	DefaultEnvironment Environment
	Overrides          map[EndpointClass]Environment

	// bypassForTesting forces production from EnvironmentFor regardless of
	// settings, so tests can patch one set of URLs deterministically.
	bypassForTesting bool
}

// Production returns a configuration that uses production for every
// endpoint class.
func Production() *Config {
	return &Config{DefaultEnvironment: EnvProduction, Overrides: map[EndpointClass]Environment{}}
}

// Testnet returns a configuration that uses testnet for every endpoint
// class.
func Testnet() *Config {
	return &Config{DefaultEnvironment: EnvTestnet, Overrides: map[EndpointClass]Environment{}}
}

// Hybrid returns a configuration defaulting to production with specific
// per-endpoint-class overrides, e.g.
// Hybrid(map[EndpointClass]Environment{EndpointOrders: EnvTestnet}).
func Hybrid(overrides map[EndpointClass]Environment) *Config {
	cfg := Production()
	for k, v := range overrides {
		cfg.Overrides[k] = v
	}
	return cfg
}

// ForTesting returns a configuration that always answers production from
// EnvironmentFor, regardless of DefaultEnvironment/Overrides, so test
// suites can patch a single set of URLs deterministically.
func ForTesting() *Config {
	cfg := Production()
	cfg.bypassForTesting = true
	return cfg
}

// EnvironmentFor consults the per-class override table, then the default,
// unless the bypass-for-testing flag forces production.
func (c *Config) EnvironmentFor(class EndpointClass) Environment {
	if c.bypassForTesting {
		return EnvProduction
	}
	if env, ok := c.Overrides[class]; ok {
		return env
	}
	return c.DefaultEnvironment
}

// IsTestnetFor reports whether testnet should be used for the given
// endpoint class.
func (c *Config) IsTestnetFor(class EndpointClass) bool {
	return c.EnvironmentFor(class) == EnvTestnet
}
