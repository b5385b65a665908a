package engine_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/scheme"
)

func newEnv(t *testing.T) *engine.Environment {
	t.Helper()
	env := &engine.Environment{CheckBackends: false}
	if err := env.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { env.Teardown() })
	return env
}

func TestErrorKinds(t *testing.T) {
	r := engine.NewRegistry(newEnv(t))

	_, err := r.Scheme(engine.DockerName, "Naive Bayes")
	if !errors.Is(err, engine.ErrEngineUnavailable) || errors.Is(err, engine.ErrUnsupportedScheme) {
		t.Errorf("docker without image: %v", err)
	}
	var ue *engine.UnavailableError
	if !errors.As(err, &ue) || ue.Engine != engine.DockerName || len(ue.Reasons) != 1 {
		t.Errorf("unavailable error %+v", ue)
	}

	_, err = r.Scheme(engine.NativeName, "Random forest classifier")
	if !errors.Is(err, engine.ErrUnsupportedScheme) || errors.Is(err, engine.ErrEngineUnavailable) {
		t.Errorf("native random forest: %v", err)
	}
	var se *engine.UnsupportedSchemeError
	if !errors.As(err, &se) || se.Scheme != "Random forest classifier" {
		t.Errorf("unsupported error %+v", se)
	}

	_, err = r.Scheme(engine.PythonName, "Deep learning network")
	if !errors.Is(err, engine.ErrUnsupportedScheme) {
		t.Errorf("python deep learning: %v", err)
	}

	_, err = r.Scheme("Matlab", "Naive Bayes")
	if !errors.Is(err, engine.ErrUnknownEngine) {
		t.Errorf("unknown engine: %v", err)
	}
}

func TestSupports(t *testing.T) {
	env := newEnv(t)
	tests := []struct {
		engine engine.Engine
		scheme string
		want   bool
	}{
		{engine.NewNative(env), "Naive Bayes", true},
		{engine.NewNative(env), "Naive Bayes incremental", true},
		{engine.NewNative(env), "Extreme gradient boosting classifier", false},
		{engine.NewPython(env), "Extreme gradient boosting classifier", true},
		{engine.NewPython(env), "Naive Bayes incremental", false},
		{engine.NewDocker(env), "Extreme gradient boosting regressor", false},
		{engine.NewDocker(env), "Random forest regressor", true},
		{engine.NewPython(env), "Quantum forest", false},
	}
	for _, tt := range tests {
		t.Run(tt.engine.Name()+"/"+tt.scheme, func(t *testing.T) {
			if got := tt.engine.Supports(tt.scheme); got != tt.want {
				t.Errorf("Supports = %v, want %v", got, tt.want)
			}
		})
	}
	if n := len(engine.SupportedSchemes(engine.NewNative(env))); n != 7 {
		t.Errorf("native supports %d schemes, want 7", n)
	}
}

func TestDockerExclusions(t *testing.T) {
	env := newEnv(t)
	python, docker := engine.NewPython(env), engine.NewDocker(env)
	var excluded []string
	for _, name := range scheme.PythonNames() {
		if !python.Supports(name) {
			t.Errorf("python does not support its own learner %s", name)
		}
		if !docker.Supports(name) {
			excluded = append(excluded, name)
		}
	}
	want := []string{"Extreme gradient boosting classifier", "Extreme gradient boosting regressor"}
	if !reflect.DeepEqual(excluded, want) {
		t.Errorf("docker excludes %v, want %v", excluded, want)
	}
}

func TestSchemeResolution(t *testing.T) {
	r := engine.NewRegistry(newEnv(t))
	s, err := r.Scheme(engine.NativeName, "Nearest neighbours")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*scheme.Native); !ok || s.Name() != "Nearest neighbours" {
		t.Errorf("got %T %s", s, s.Name())
	}
	// Unprobed python is assumed available.
	s, err = r.Scheme(engine.PythonName, "Support vector regressor")
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := s.(*scheme.Python); !ok || p.Learner() != "SVR" {
		t.Errorf("got %T", s)
	}
}

func TestRegistry(t *testing.T) {
	r := engine.NewRegistry(newEnv(t))
	if want := []string{"Native", "Python", "Docker"}; !reflect.DeepEqual(r.Names(), want) {
		t.Errorf("Names = %v", r.Names())
	}
	if want := []string{"Native", "Python"}; !reflect.DeepEqual(r.AvailableNames(), want) {
		t.Errorf("AvailableNames = %v", r.AvailableNames())
	}
	r.Register(engine.NewNative(newEnv(t)))
	if len(r.Names()) != 3 {
		t.Errorf("Register should replace by name: %v", r.Names())
	}
}

func TestEnvironmentLifecycle(t *testing.T) {
	env := &engine.Environment{}
	if ok, reasons := env.Availability(engine.PythonName); ok || len(reasons) == 0 {
		t.Error("expected unavailable before Init")
	}

	dir := t.TempDir()
	envFile := filepath.Join(dir, "worker.env")
	if err := os.WriteFile(envFile, []byte("# comment\nDATA_DIR=\"/srv\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env.EnvFile = envFile
	if err := env.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	env.PythonCommand = "changed"
	if err := env.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	b, err := env.Backend(engine.PythonName)
	if err != nil {
		t.Fatal(err)
	}
	type settings interface{ Settings() (string, string, string) }
	if cmd, _, _ := b.(settings).Settings(); cmd != "python3" {
		t.Errorf("second Init should not reconfigure, command %q", cmd)
	}
	if err := env.Teardown(); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Backend(engine.PythonName); !errors.Is(err, engine.ErrEngineUnavailable) {
		t.Errorf("after Teardown: %v", err)
	}

	bad := &engine.Environment{EnvFile: filepath.Join(dir, "missing.env")}
	if err := bad.Init(); err == nil {
		t.Error("expected missing env file to fail")
	}
}

func TestProcessRegistry(t *testing.T) {
	if engine.Current() != nil {
		t.Fatal("registry installed before Init")
	}
	r1, err := engine.Init(&engine.Environment{})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := engine.Init(&engine.Environment{DockerImage: "other"})
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 || engine.Current() != r1 {
		t.Error("Init should be idempotent")
	}
	if err := engine.Teardown(); err != nil {
		t.Fatal(err)
	}
	if engine.Current() != nil {
		t.Error("Teardown should clear the registry")
	}
}
