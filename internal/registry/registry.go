// Package registry is the process-wide exchange-name to adapter-factory
// mapping. It is populated once at init and is read-only thereafter,
// mirroring candles_feed.core.exchange_registry.ExchangeRegistry.
package registry

import (
	"sort"
	"sync"

	"github.com/sawpanic/candlefeed/internal/adapter"
	"github.com/sawpanic/candlefeed/internal/netconfig"
)

// Factory constructs a fresh adapter bound to the given network config.
type Factory func(network *netconfig.Config) (adapter.Adapter, error)

var (
	mu       sync.RWMutex
	adapters = map[string]Factory{}
)

// Register binds name to factory. Intended to be called from each
// adapter's package init (or explicitly at process startup) before any
// feed is created; the registry holds no implicit discovery of its own,
// though a loader may choose to import a known set of packages purely to
// trigger their init()s, as cmd/candlefeed does with blank imports.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	adapters[name] = factory
}

// Resolve constructs a fresh adapter instance bound to the given network
// config. It fails with KindUnknownExchange if name is not registered.
func Resolve(name string, network *netconfig.Config) (adapter.Adapter, error) {
	mu.RLock()
	factory, ok := adapters[name]
	mu.RUnlock()
	if !ok {
		return nil, adapter.NewError(adapter.KindUnknownExchange, name, "no adapter registered for exchange "+name, nil)
	}
	return factory(network)
}

// List returns the registered exchange names in sorted order, for CLIs.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// reset clears the registry. Test-only: package-external code has no
// business unregistering adapters once the process is up.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	adapters = map[string]Factory{}
}
