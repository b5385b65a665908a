package cmd

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/crucible/internal/config"
	"github.com/signalnine/crucible/internal/result"
)

func TestFilterSchemes(t *testing.T) {
	schemes := []config.Scheme{
		{Engine: "Native", Scheme: "Naive Bayes"},
		{Engine: "Python", Scheme: "Naive Bayes"},
		{Engine: "Native", Scheme: "Nearest neighbours"},
	}

	tests := []struct {
		name    string
		scheme  string
		engine  string
		want    int
	}{
		{"empty filters returns all", "", "", 3},
		{"by scheme", "Naive Bayes", "", 2},
		{"by scheme ignores case", "naive bayes", "", 2},
		{"by engine", "", "Native", 2},
		{"combined", "Naive Bayes", "python", 1},
		{"no match", "Random forest classifier", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterSchemes(schemes, tt.scheme, tt.engine)
			if len(got) != tt.want {
				t.Errorf("filterSchemes(%q, %q) returned %d, want %d", tt.scheme, tt.engine, len(got), tt.want)
			}
		})
	}
}

// writeProject lays out a dataset and config under a temp dir and returns
// the config path and results dir.
func writeProject(t *testing.T, schemes string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("a,b,label\n")
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 40; i++ {
		label := "low"
		shift := 0.0
		if i%2 == 1 {
			label, shift = "high", 3
		}
		fmt.Fprintf(&b, "%.3f,%.3f,%s\n", shift+r.NormFloat64()*0.5, shift+r.NormFloat64()*0.5, label)
	}
	dataPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(dataPath, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	results := filepath.Join(dir, "results")
	cfg := fmt.Sprintf(`dataset: {path: %q, class: label}
evaluation: {mode: cross_validation, folds: 5}
schemes:
%s
backends: {check_backends: false}
results: {dir: %q}
parallel: 2
`, dataPath, schemes, results)
	cfgPath := filepath.Join(dir, "crucible.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, results
}

func TestRunWritesResults(t *testing.T) {
	cfgPath, results := writeProject(t, `  - {engine: Native, scheme: Naive Bayes}
  - {engine: Native, scheme: Nearest neighbours, options: "-K 3"}`)

	root := NewRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "run"})
	if err := root.Execute(); err != nil {
		t.Fatalf("run: %v", err)
	}

	runDir, err := filepath.EvalSymlinks(filepath.Join(results, "latest"))
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	metas, err := result.CollectEvaluations(runDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d evaluations, want 2", len(metas))
	}
	for _, m := range metas {
		if !m.Performed || m.Error != "" {
			t.Errorf("%s: performed=%v error=%q", m.Scheme, m.Performed, m.Error)
		}
	}
	if _, err := os.Stat(filepath.Join(results, "history.db")); err != nil {
		t.Errorf("history index not created: %v", err)
	}

	root = NewRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "report", "--format", "json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("report: %v", err)
	}
}

func TestCheckFailsOnRefusedScheme(t *testing.T) {
	cfgPath, _ := writeProject(t, `  - {engine: Native, scheme: Naive Bayes}
  - {engine: Native, scheme: Linear regression}`)

	root := NewRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "check"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("check: got %v, want 1 of 2 schemes failing", err)
	}
}
