package driver

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a driver from its descriptor.
type Factory func(desc Descriptor) (Driver, error)

// Catalog maps factory keys to factories. Drivers are only ever built through
// a catalog lookup.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under key.
func (c *Catalog) Register(key string, factory Factory) error {
	if key == "" {
		return fmt.Errorf("factory key is empty")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory %q", key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[key]; exists {
		return fmt.Errorf("factory %q already registered", key)
	}
	c.factories[key] = factory
	return nil
}

// MustRegister is Register that panics; for wiring built-in factories.
func (c *Catalog) MustRegister(key string, factory Factory) {
	if err := c.Register(key, factory); err != nil {
		panic(err)
	}
}

// New instantiates desc using the factory for desc.FactoryKey().
func (c *Catalog) New(desc Descriptor) (Driver, error) {
	key := desc.FactoryKey()

	c.mu.RLock()
	factory, ok := c.factories[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no factory for driver type %q", key)
	}
	drv, err := factory(desc)
	if err != nil {
		return nil, fmt.Errorf("create driver %s: %w", desc, err)
	}
	if drv == nil {
		return nil, fmt.Errorf("factory %q returned nil driver", key)
	}
	return drv, nil
}

// Keys returns registered factory keys, sorted.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.factories))
	for k := range c.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
