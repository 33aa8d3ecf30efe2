package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
)

var (
	// ErrUnknownType indicates no factory is registered for a block type.
	ErrUnknownType = errors.New("unknown block type")

	// ErrDuplicateType indicates a block type was registered twice.
	ErrDuplicateType = errors.New("block type already registered")
)

// Factory creates a block named name from its parameters.
// Parameters the factory does not know must be rejected, not ignored.
type Factory func(name string, params config.Config) (streamgraph.Block, error)

// Registry maps block type names to factories.
// It uses sync.RWMutex for read-heavy workloads: types are registered once
// at startup and looked up for every block of every pipeline.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for a block type.
// Returns ErrDuplicateType if the type is already registered.
func (r *Registry) Register(blockType string, f Factory) error {
	if blockType == "" {
		return fmt.Errorf("%w: empty type name", ErrUnknownType)
	}
	if f == nil {
		return fmt.Errorf("registry: nil factory for %s", blockType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[blockType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, blockType)
	}
	r.factories[blockType] = f
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(blockType string, f Factory) {
	if err := r.Register(blockType, f); err != nil {
		panic(err)
	}
}

// Get returns the factory for a block type and whether it exists.
func (r *Registry) Get(blockType string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[blockType]
	return f, ok
}

// Has reports whether a block type is registered.
func (r *Registry) Has(blockType string) bool {
	_, ok := r.Get(blockType)
	return ok
}

// Unregister removes a block type. Unknown types are ignored.
func (r *Registry) Unregister(blockType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, blockType)
}

// Types returns the registered block types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	r.mu.RUnlock()

	slices.Sort(types)
	return types
}

// Len returns the number of registered block types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Build creates a block of the given type.
// The factory runs without the registry lock held, so it may itself use
// the registry.
func (r *Registry) Build(blockType, name string, params map[string]any) (streamgraph.Block, error) {
	f, ok := r.Get(blockType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, blockType)
	}
	b, err := f(name, config.New(params))
	if err != nil {
		return nil, fmt.Errorf("build %s block %q: %w", blockType, name, err)
	}
	if b == nil {
		return nil, fmt.Errorf("build %s block %q: factory returned nil", blockType, name)
	}
	return b, nil
}

// Configure applies every parameter in params to b through SetParameter,
// in key order, skipping the keys in skip. Factories use it for the
// parameters they do not consume themselves. It stops at the first
// rejected parameter.
func Configure(b streamgraph.Tunable, params config.Config, skip ...string) error {
	for _, key := range SortedKeys(params) {
		if slices.Contains(skip, key) {
			continue
		}
		if err := b.SetParameter(key, params.Any(key, nil)); err != nil {
			return err
		}
	}
	return nil
}

// SortedKeys returns the keys of params in sorted order.
func SortedKeys(params config.Config) []string {
	raw := params.Raw()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
