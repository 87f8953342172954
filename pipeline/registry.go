package pipeline

import (
	"fmt"
	"sync"
)

// Factory builds a Stage from the arguments of a StageCall.
type Factory func(args map[string]any) (Stage, error)

// Registry maps stage names to factories. It is an explicit object
// constructed at startup and passed by reference (via the Engine and the
// ExecContext); there is no ambient global registry. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given name. Overwrites any existing
// registration.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = make(map[string]Factory)
	}
	r.factories[name] = f
}

// RegisterStage adds a fixed stage under the given name, ignoring call args.
func (r *Registry) RegisterStage(name string, s Stage) {
	r.Register(name, func(map[string]any) (Stage, error) { return s, nil })
}

// Resolve builds the stage for a call. Returns *UnknownStageError when the
// name is not registered.
func (r *Registry) Resolve(call StageCall) (Stage, error) {
	r.mu.RLock()
	f, ok := r.factories[call.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownStageError{Name: call.Name}
	}
	s, err := f(call.Args)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", call.Name, err)
	}
	return s, nil
}

// Names returns all registered stage names (unordered).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}
