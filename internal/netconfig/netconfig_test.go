package netconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProduction(t *testing.T) {
	cfg := Production()
	assert.False(t, cfg.IsTestnetFor(EndpointCandles))
}

func TestTestnet(t *testing.T) {
	cfg := Testnet()
	assert.True(t, cfg.IsTestnetFor(EndpointCandles))
	assert.True(t, cfg.IsTestnetFor(EndpointOrders))
}

func TestHybrid(t *testing.T) {
	cfg := Hybrid(map[EndpointClass]Environment{EndpointOrders: EnvTestnet})
	assert.False(t, cfg.IsTestnetFor(EndpointCandles))
	assert.True(t, cfg.IsTestnetFor(EndpointOrders))
}

func TestForTesting_BypassesEverything(t *testing.T) {
	cfg := ForTesting()
	assert.False(t, cfg.IsTestnetFor(EndpointCandles))
	assert.Equal(t, EnvProduction, cfg.EnvironmentFor(EndpointOrders))
}
