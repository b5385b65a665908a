package worker_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
	"github.com/signalnine/crucible/internal/worker"
)

// fakeBackend answers requests in process, remembering what it was sent.
type fakeBackend struct {
	requests []*worker.Request
	env      map[string]string
	classes  int
	fail     bool
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) Probe() error { return nil }
func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) Run(req *worker.Request, env map[string]string) (*worker.Response, error) {
	f.requests = append(f.requests, req)
	f.env = env
	if f.fail {
		return nil, errors.New("boom")
	}
	resp := &worker.Response{OK: true}
	if req.Op == "predict" {
		for range req.Data.Rows {
			p := make([]float64, f.classes)
			p[0] = 1
			resp.Predictions = append(resp.Predictions, p)
		}
	}
	return resp, nil
}

func iris(n int) *data.Dataset {
	d := data.New("iris", []data.Attribute{
		data.NumericAttribute("petal"),
		data.NominalAttribute("class", "setosa", "versicolor", "virginica"),
	})
	d.SetClassIndex(1)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < n; i++ {
		d.Add(data.Row{r.Float64(), float64(i % 3)})
	}
	d.Rows[0][0] = data.Missing
	return d
}

func TestModelFitPredict(t *testing.T) {
	b := &fakeBackend{classes: 3}
	m := worker.NewModel(b, "GaussianNB", "var_smoothing=1e-9")
	m.SetVariables(map[string]string{"DATA_DIR": "/srv"})
	if err := m.Fit(iris(9)); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	fit := b.requests[0]
	if fit.Op != "fit" || fit.Learner != "GaussianNB" || fit.Params != "var_smoothing=1e-9" {
		t.Errorf("fit request %+v", fit)
	}
	if fit.Data.Rows[0][0] != nil {
		t.Error("missing value should be sent as null")
	}
	if !strings.HasPrefix(fit.ModelPath, "model-") {
		t.Errorf("model path %q", fit.ModelPath)
	}
	if b.env["DATA_DIR"] != "/srv" {
		t.Errorf("variables not passed: %v", b.env)
	}

	preds, err := m.PredictBatch(iris(4))
	if err != nil {
		t.Fatalf("PredictBatch: %v", err)
	}
	if len(preds) != 4 || b.requests[1].ModelPath != fit.ModelPath {
		t.Errorf("predict used model %q, got %d predictions", b.requests[1].ModelPath, len(preds))
	}
	if !model.EfficientBatch(m) {
		t.Error("worker models predict in batches")
	}
}

func TestModelFreshCopyIsUntrained(t *testing.T) {
	b := &fakeBackend{classes: 3}
	m := worker.NewModel(b, "SVC", "C=2.0")
	m.Fit(iris(6))
	c, _ := m.FreshCopy()
	if _, err := c.Predict(data.Row{1, 0}); err == nil {
		t.Error("fresh copy should not be trained")
	}
	if got := model.JoinOptions(c.Options()); got != `-learner SVC -params C=2.0` {
		t.Errorf("options %q", got)
	}
}

func TestModelErrors(t *testing.T) {
	m := worker.NewModel(&fakeBackend{fail: true}, "SVC", "")
	if err := m.Fit(iris(6)); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected backend error, got %v", err)
	}
	if err := m.SetOptions([]string{"-learner", "SVR"}); err == nil {
		t.Error("expected error changing learner")
	}
	reg := worker.NewModel(&fakeBackend{}, "SVR", "")
	if err := reg.CheckData(iris(3)); err == nil {
		t.Error("regressor should reject a nominal class")
	}
	mnb := worker.NewModel(&fakeBackend{}, "MultinomialNB", "")
	d := iris(3)
	d.Attributes = append([]data.Attribute{data.NominalAttribute("colour", "red")}, d.Attributes...)
	d.ClassIndex = 2
	for i := range d.Rows {
		d.Rows[i] = append(data.Row{0}, d.Rows[i]...)
	}
	if err := mnb.CheckData(d); err == nil {
		t.Error("MultinomialNB should reject nominal attributes")
	}
}

func TestConfigure(t *testing.T) {
	if err := worker.Configure(worker.NewDockerBackend("img", nil), "python", "", ""); !errors.Is(err, worker.ErrNotSupported) {
		t.Errorf("docker backend: got %v, want ErrNotSupported", err)
	}
	b := worker.NewExecBackend("", "", nil)
	if err := worker.Configure(b, "/opt/py/bin/python", "/opt/py/bin", "srv1"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if cmd, path, id := b.Settings(); cmd != "/opt/py/bin/python" || path != "/opt/py/bin" || id != "srv1" {
		t.Errorf("settings %q %q %q", cmd, path, id)
	}
}

func TestParseEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.env")
	os.WriteFile(path, []byte("# comment\nexport A=1\nB='two'\n\nbroken\n"), 0o644)
	env, err := worker.ParseEnvFile(path)
	if err != nil {
		t.Fatalf("ParseEnvFile: %v", err)
	}
	if len(env) != 2 || env["A"] != "1" || env["B"] != "two" {
		t.Errorf("env %v", env)
	}
}

func TestExecBackendPython(t *testing.T) {
	if os.Getenv("CRUCIBLE_PYTHON_TESTS") == "" {
		t.Skip("set CRUCIBLE_PYTHON_TESTS=1 to run Python worker tests")
	}
	b := worker.NewExecBackend("", "", nil)
	defer b.Close()
	if err := b.Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	m := worker.NewModel(b, "GaussianNB", "")
	train := iris(30)
	if err := m.Fit(train); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	preds, err := m.PredictBatch(train)
	if err != nil {
		t.Fatalf("PredictBatch: %v", err)
	}
	if len(preds) != 30 || len(preds[0]) != 3 {
		t.Errorf("unexpected prediction shape %dx%d", len(preds), len(preds[0]))
	}
}

func TestDockerBackend(t *testing.T) {
	if os.Getenv("CRUCIBLE_DOCKER_TESTS") == "" {
		t.Skip("set CRUCIBLE_DOCKER_TESTS=1 to run Docker tests")
	}
	image := os.Getenv("CRUCIBLE_WORKER_IMAGE")
	if image == "" {
		t.Skip("set CRUCIBLE_WORKER_IMAGE to an image with scikit-learn")
	}
	b := worker.NewDockerBackend(image, nil)
	defer b.Close()
	if err := b.Probe(); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}

func TestRunContainer(t *testing.T) {
	if os.Getenv("CRUCIBLE_DOCKER_TESTS") == "" {
		t.Skip("set CRUCIBLE_DOCKER_TESTS=1 to run Docker tests")
	}
	tests := []struct {
		name     string
		command  string
		wantExit int
		wantLogs string
	}{
		{"writes to workspace", "echo $GREETING > output.txt", 0, ""},
		{"failing command", "echo broken >&2; exit 3", 3, "broken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workDir := t.TempDir()
			result, err := worker.RunContainer(context.Background(), &worker.RunOpts{
				Image:   "alpine:latest",
				Command: []string{"sh", "-c", tt.command},
				WorkDir: workDir,
				Env:     map[string]string{"GREETING": "hello"},
				UserID:  fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
			})
			if err != nil {
				t.Fatalf("RunContainer: %v", err)
			}
			if result.ExitCode != tt.wantExit {
				t.Errorf("exit %d, want %d", result.ExitCode, tt.wantExit)
			}
			if !strings.Contains(result.Logs, tt.wantLogs) {
				t.Errorf("logs %q, want %q", result.Logs, tt.wantLogs)
			}
			if tt.wantExit != 0 {
				return
			}
			content, err := os.ReadFile(filepath.Join(workDir, "output.txt"))
			if err != nil {
				t.Fatalf("reading output: %v", err)
			}
			if string(content) != "hello\n" {
				t.Errorf("output: got %q, want %q", content, "hello\n")
			}
		})
	}
}

func TestRunContainerCancelled(t *testing.T) {
	if os.Getenv("CRUCIBLE_DOCKER_TESTS") == "" {
		t.Skip("set CRUCIBLE_DOCKER_TESTS=1 to run Docker tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := worker.RunContainer(ctx, &worker.RunOpts{
		Image:   "alpine:latest",
		Command: []string{"sleep", "300"},
		WorkDir: t.TempDir(),
	})
	if err == nil {
		t.Fatalf("expected an error, got %+v", result)
	}
	if !strings.Contains(err.Error(), "waiting for container") {
		t.Errorf("error %v does not name the wait", err)
	}
}
