package capability

import (
	"fmt"
	"sort"
)

// Constructor builds a Capability from provider settings.
type Constructor func(cfg Config) (Capability, error)

var registry = map[string]Constructor{}

// Register adds a capability constructor under the given provider name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the constructor for the given provider name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown capability provider: %s", name)
	}
	return ctor, nil
}

// Providers returns the names of all registered providers, sorted.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the configured capability. An empty or "none" provider means
// deterministic-only mode and yields a nil Capability.
func Open(cfg Config) (Capability, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return nil, nil
	}
	ctor, err := Get(cfg.Provider)
	if err != nil {
		return nil, err
	}
	c, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("capability %s: %w", cfg.Provider, err)
	}
	return c, nil
}
