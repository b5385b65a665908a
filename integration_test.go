//go:build integration

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/crucible/cmd"
	"github.com/signalnine/crucible/internal/result"
)

// writeConfig points a config at the flowers fixtures and returns its path
// and results dir.
func writeConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	train, _ := filepath.Abs("testdata/flowers.csv")
	test, _ := filepath.Abs("testdata/flowers-test.csv")
	dir := t.TempDir()
	results := filepath.Join(dir, "results")
	cfg := fmt.Sprintf("dataset: {path: %q, class: species}\ntest_set: {path: %q}\nresults: {dir: %q}\n%s",
		train, test, results, body)
	path := filepath.Join(dir, "crucible.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, results
}

func execute(t *testing.T, args ...string) {
	t.Helper()
	root := cmd.NewRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("crucible %v: %v", args, err)
	}
}

func latestMetas(t *testing.T, results string) []*result.EvaluationMeta {
	t.Helper()
	runDir, err := filepath.EvalSymlinks(filepath.Join(results, "latest"))
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	metas, err := result.CollectEvaluations(runDir)
	if err != nil {
		t.Fatal(err)
	}
	return metas
}

func TestNativeSeparateTestSet(t *testing.T) {
	cfg, results := writeConfig(t, `evaluation: {mode: separate_test_set, compute_auc: true, output_ir_metrics: true}
schemes:
  - {engine: Native, scheme: Naive Bayes}
  - {engine: Native, scheme: Nearest neighbours, options: "-K 5", preprocessing: [{class: Standardize}]}
  - {engine: Native, scheme: Support vector classifier, parameters: {E: "30"}}
backends: {check_backends: false}
parallel: 3
`)
	execute(t, "--config", cfg, "check")
	execute(t, "--config", cfg, "run")
	execute(t, "--config", cfg, "run", "--scheme", "Naive Bayes")

	metas := latestMetas(t, results)
	if len(metas) != 1 {
		t.Fatalf("filtered run: got %d evaluations, want 1", len(metas))
	}
	m := metas[0]
	if !m.Performed || m.Error != "" {
		t.Fatalf("naive bayes: performed=%v error=%q", m.Performed, m.Error)
	}
	if n, _ := m.Number("Total number of instances"); n != 30 {
		t.Errorf("instances: got %v, want 30", n)
	}
	if pct, _ := m.Number("Percent correct"); pct < 80 {
		t.Errorf("percent correct: got %v", pct)
	}
	if _, ok := m.Number("setosa_ROC area"); !ok {
		t.Error("setosa_ROC area missing")
	}

	idx, err := result.OpenIndex(filepath.Join(results, "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	hist, err := idx.History("Naive Bayes", 0)
	if err != nil || len(hist) != 2 {
		t.Errorf("history: got %d entries (%v), want 2", len(hist), err)
	}

	execute(t, "--config", cfg, "report", "--format", "markdown")
	execute(t, "--config", cfg, "report", "--history", "Naive Bayes")
	execute(t, "--config", cfg, "list", "--parameters")
}

func TestPythonCrossValidation(t *testing.T) {
	if os.Getenv("CRUCIBLE_PYTHON_TESTS") == "" {
		t.Skip("set CRUCIBLE_PYTHON_TESTS=1 to run Python worker tests")
	}
	cfg, results := writeConfig(t, `evaluation: {mode: cross_validation, folds: 5}
schemes:
  - {engine: Python, scheme: Naive Bayes}
  - {engine: Python, scheme: Random forest classifier, parameters: {n_estimators: "20"}}
`)
	execute(t, "--config", cfg, "run")
	for _, m := range latestMetas(t, results) {
		if !m.Performed || m.Error != "" {
			t.Errorf("%s: performed=%v error=%q", m.Scheme, m.Performed, m.Error)
		}
		if pct, _ := m.Number("Percent correct"); pct < 80 {
			t.Errorf("%s percent correct: got %v", m.Scheme, pct)
		}
	}
}

func TestDockerPercentageSplit(t *testing.T) {
	if os.Getenv("CRUCIBLE_DOCKER_TESTS") == "" {
		t.Skip("set CRUCIBLE_DOCKER_TESTS=1 to run Docker tests")
	}
	image := os.Getenv("CRUCIBLE_WORKER_IMAGE")
	if image == "" {
		t.Skip("set CRUCIBLE_WORKER_IMAGE to an image with scikit-learn")
	}
	cfg, results := writeConfig(t, fmt.Sprintf(`evaluation: {mode: percentage_split}
schemes:
  - {engine: Docker, scheme: Decision tree classifier}
backends: {docker_image: %q}
`, image))
	execute(t, "--config", cfg, "run")
	metas := latestMetas(t, results)
	if len(metas) != 1 || !metas[0].Performed {
		t.Fatalf("docker evaluation: %+v", metas)
	}
}
