// Package engine maps an engine name and an algorithm name to a scheme.
// The set of engines is closed: Native runs learners in process, Python
// and Docker run scikit-learn through a worker backend.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/signalnine/crucible/internal/scheme"
)

const (
	NativeName = "Native"
	PythonName = "Python"
	DockerName = "Docker"
)

var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrUnsupportedScheme = errors.New("scheme not supported")
	ErrUnknownEngine     = errors.New("unknown engine")
)

// UnavailableError reports an engine whose backend could not be reached.
type UnavailableError struct {
	Engine  string
	Reasons []string
}

func (e *UnavailableError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("engine %s is not available", e.Engine)
	}
	return fmt.Sprintf("engine %s is not available: %s", e.Engine, strings.Join(e.Reasons, "; "))
}

func (e *UnavailableError) Is(target error) bool { return target == ErrEngineUnavailable }

// UnsupportedSchemeError reports an algorithm an engine does not implement.
type UnsupportedSchemeError struct {
	Engine string
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("engine %s does not support scheme %q", e.Engine, e.Scheme)
}

func (e *UnsupportedSchemeError) Is(target error) bool { return target == ErrUnsupportedScheme }

type Engine interface {
	Name() string
	// Available reports whether the engine can run, with reasons when not.
	Available() (bool, []string)
	Supports(scheme string) bool
	Scheme(name string) (scheme.Scheme, error)
}

// SupportedSchemes lists the algorithms e implements, in scheme.Names order.
func SupportedSchemes(e Engine) []string {
	var out []string
	for _, n := range scheme.Names {
		if e.Supports(n) {
			out = append(out, n)
		}
	}
	return out
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Native runs the in-process learners and is always available. It
// supports every scheme with a native learner.
type Native struct {
	env *Environment
}

func NewNative(env *Environment) *Native { return &Native{env: env} }

func (e *Native) Name() string { return NativeName }

func (e *Native) Available() (bool, []string) { return true, nil }

func (e *Native) Supports(name string) bool {
	return slices.Contains(scheme.NativeNames(), name)
}

func (e *Native) Scheme(name string) (scheme.Scheme, error) {
	if !e.Supports(name) {
		return nil, &UnsupportedSchemeError{Engine: e.Name(), Scheme: name}
	}
	s, err := scheme.NewNative(name)
	if err != nil {
		return nil, err
	}
	s.SetMessages(e.env.Messages)
	return s, nil
}

// Worker runs scikit-learn learners through a worker backend held by the
// environment. Python and Docker differ only in backend and in the
// learners excluded from the scikit-learn set.
type Worker struct {
	name     string
	env      *Environment
	excluded map[string]bool
}

func NewPython(env *Environment) *Worker {
	return &Worker{name: PythonName, env: env}
}

// NewDocker excludes the gradient boosting libraries the worker image
// does not ship.
func NewDocker(env *Environment) *Worker {
	return &Worker{name: DockerName, env: env, excluded: set(
		"Extreme gradient boosting classifier",
		"Extreme gradient boosting regressor",
	)}
}

func (e *Worker) Name() string { return e.name }

func (e *Worker) Available() (bool, []string) { return e.env.Availability(e.name) }

func (e *Worker) Supports(name string) bool {
	return !e.excluded[name] && slices.Contains(scheme.PythonNames(), name)
}

func (e *Worker) Scheme(name string) (scheme.Scheme, error) {
	if ok, reasons := e.Available(); !ok {
		return nil, &UnavailableError{Engine: e.name, Reasons: reasons}
	}
	if !e.Supports(name) {
		return nil, &UnsupportedSchemeError{Engine: e.name, Scheme: name}
	}
	b, err := e.env.Backend(e.name)
	if err != nil {
		return nil, err
	}
	s, err := scheme.NewPython(name, b)
	if err != nil {
		return nil, err
	}
	s.SetMessages(e.env.Messages)
	return s, nil
}
