package engine

import (
	"fmt"
	"sync"

	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/mlog"
	"github.com/signalnine/crucible/internal/worker"
)

// Environment is the process-wide backend state engines read their
// availability from. Fields are read once by Init.
type Environment struct {
	PythonCommand string
	PythonPath    string
	DockerImage   string
	// EnvFile is a KEY=VALUE file passed to every worker process.
	EnvFile       string
	CheckBackends bool
	Logger        mlog.Logger
	Messages      messages.Catalog

	mu          sync.Mutex
	initialized bool
	backends    map[string]worker.Backend
	reasons     map[string][]string
}

// Init creates the worker backends and, when CheckBackends is set, probes
// them. Calling Init again does nothing.
func (e *Environment) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}
	e.Messages = messages.OrDefault(e.Messages)
	log := mlog.OrNop(e.Logger)

	var env map[string]string
	if e.EnvFile != "" {
		var err error
		env, err = worker.ParseEnvFile(e.EnvFile)
		if err != nil {
			return fmt.Errorf("engine environment: %w", err)
		}
	}
	e.backends = map[string]worker.Backend{
		PythonName: worker.NewExecBackend(e.PythonCommand, e.PythonPath, env),
		DockerName: worker.NewDockerBackend(e.DockerImage, env),
	}
	e.reasons = make(map[string][]string)

	if e.DockerImage == "" {
		e.reasons[DockerName] = []string{e.Messages.Get(messages.DockerUnavailable, e.Messages.Get(messages.DockerImageNotSet))}
	}
	if e.CheckBackends {
		if err := e.backends[PythonName].Probe(); err != nil {
			e.reasons[PythonName] = []string{e.Messages.Get(messages.PythonUnavailable, err)}
		}
		if e.DockerImage != "" {
			if err := e.backends[DockerName].Probe(); err != nil {
				e.reasons[DockerName] = []string{e.Messages.Get(messages.DockerUnavailable, err)}
			}
		}
	}
	for _, name := range []string{PythonName, DockerName} {
		for _, r := range e.reasons[name] {
			log.LogDetailed(r)
		}
	}
	e.initialized = true
	return nil
}

// Availability reports whether the named backend engine can run.
func (e *Environment) Availability(name string) (bool, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return false, []string{"environment not initialized"}
	}
	if _, ok := e.backends[name]; !ok {
		return false, []string{fmt.Sprintf("no backend for engine %s", name)}
	}
	reasons := e.reasons[name]
	return len(reasons) == 0, reasons
}

func (e *Environment) Backend(name string) (worker.Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.backends[name]
	if !e.initialized || !ok {
		return nil, &UnavailableError{Engine: name, Reasons: []string{"no backend"}}
	}
	return b, nil
}

// Teardown closes the backends, removing their scratch directories, and
// returns the environment to its uninitialised state.
func (e *Environment) Teardown() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var first error
	for _, b := range e.backends {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	e.backends = nil
	e.reasons = nil
	e.initialized = false
	return first
}
