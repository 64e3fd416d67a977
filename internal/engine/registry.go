// Package engine provides the synthesis engine variants and the
// provider registry that creates and shares engine instances.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/book-expert/voice-service/internal/core"
)

// Factory builds an engine instance for a voice. Factories are
// registered explicitly at process startup; there is no import-time
// side-effect registration.
type Factory func(voice core.Voice) (core.Engine, error)

// Registry maps provider names to engine factories and owns the created
// engine instances. Instances are shared across concurrent requests for
// the same provider and model.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]core.Engine
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]core.Engine),
	}
}

// Register adds a factory under the provider name. Registering the same
// name twice replaces the factory; existing instances are not recreated.
func (r *Registry) Register(providerName string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[strings.ToLower(providerName)] = factory
}

// Engine returns the shared engine instance for the voice's provider and
// model, creating it on first use. An unregistered provider fails with
// core.ErrUnknownProvider.
func (r *Registry) Engine(voice core.Voice) (core.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider := strings.ToLower(voice.Provider)

	instanceKey := provider + "|" + voice.Model

	instance, ok := r.instances[instanceKey]
	if ok {
		return instance, nil
	}

	factory, ok := r.factories[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownProvider, voice.Provider)
	}

	instance, err := factory(voice)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s engine for model %s: %w",
			provider, voice.Model, err)
	}

	r.instances[instanceKey] = instance

	return instance, nil
}

// Providers returns the registered provider names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Close closes every created engine instance, keeping the last error.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error

	for key, instance := range r.instances {
		closeErr := instance.Close()
		if closeErr != nil {
			lastErr = fmt.Errorf("failed to close engine %s: %w", key, closeErr)
		}

		delete(r.instances, key)
	}

	return lastErr
}
