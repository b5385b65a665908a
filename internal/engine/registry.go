package engine

import (
	"fmt"
	"sync"

	"github.com/signalnine/crucible/internal/scheme"
)

// Registry holds engines by name. It is read-mostly once built.
type Registry struct {
	mu      sync.RWMutex
	engines []Engine
}

// NewRegistry registers Native, Python and Docker over env.
func NewRegistry(env *Environment) *Registry {
	r := &Registry{}
	r.Register(NewNative(env))
	r.Register(NewPython(env))
	r.Register(NewDocker(env))
	return r
}

// Register adds e, replacing any engine with the same name in place.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.engines {
		if existing.Name() == e.Name() {
			r.engines[i] = e
			return
		}
	}
	r.engines = append(r.engines, e)
}

func (r *Registry) Engine(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.engines {
		if e.Name() == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.engines))
	for i, e := range r.engines {
		names[i] = e.Name()
	}
	return names
}

// AvailableNames lists the engines that can currently run.
func (r *Registry) AvailableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, e := range r.engines {
		if ok, _ := e.Available(); ok {
			names = append(names, e.Name())
		}
	}
	return names
}

// Scheme resolves an algorithm on the named engine.
func (r *Registry) Scheme(engineName, schemeName string) (scheme.Scheme, error) {
	e, err := r.Engine(engineName)
	if err != nil {
		return nil, err
	}
	return e.Scheme(schemeName)
}

var (
	currentMu  sync.Mutex
	current    *Registry
	currentEnv *Environment
)

// Init initialises env and installs the process-wide registry. Later calls
// return the registry already installed.
func Init(env *Environment) (*Registry, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current != nil {
		return current, nil
	}
	if err := env.Init(); err != nil {
		return nil, err
	}
	current, currentEnv = NewRegistry(env), env
	return current, nil
}

// Current returns the process-wide registry, or nil before Init.
func Current() *Registry {
	currentMu.Lock()
	defer currentMu.Unlock()
	return current
}

// Teardown releases the process-wide registry and its environment.
func Teardown() error {
	currentMu.Lock()
	defer currentMu.Unlock()
	if current == nil {
		return nil
	}
	err := currentEnv.Teardown()
	current, currentEnv = nil, nil
	return err
}
