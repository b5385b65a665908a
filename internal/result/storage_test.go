package result_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/crucible/internal/result"
)

func TestWriteAndReadEvaluationMeta(t *testing.T) {
	dir := t.TempDir()
	meta := &result.EvaluationMeta{
		ID:        "e1",
		Engine:    "Native",
		Scheme:    "Naive Bayes",
		Mode:      "cross_validation",
		Nominal:   true,
		Performed: true,
		Fields: []result.Field{
			{Name: "Scheme", Value: "NaiveBayes"},
			{Name: "Percent correct", Value: 93.5},
			{Name: "Area under ROC", Value: nil},
		},
		DurationMS: 42,
	}
	if err := result.WriteEvaluationMeta(dir, meta); err != nil {
		t.Fatalf("WriteEvaluationMeta: %v", err)
	}
	got, err := result.ReadEvaluationMeta(filepath.Join(dir, "meta.json"))
	if err != nil {
		t.Fatalf("ReadEvaluationMeta: %v", err)
	}
	if got.Scheme != meta.Scheme {
		t.Errorf("scheme: got %q, want %q", got.Scheme, meta.Scheme)
	}
	if v, ok := got.Number("Percent correct"); !ok || v != 93.5 {
		t.Errorf("percent correct: got %v %v", v, ok)
	}
	if _, ok := got.Number("Area under ROC"); ok {
		t.Error("null field should not read as a number")
	}
	if name, v, ok := got.Headline(); !ok || name != "Percent correct" || v != 93.5 {
		t.Errorf("headline: got %q %v %v", name, v, ok)
	}
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir: %v", err)
	}
	if _, err := os.Stat(runDir); os.IsNotExist(err) {
		t.Errorf("run directory not created: %s", runDir)
	}
	latest := filepath.Join(base, "latest")
	target, err := os.Readlink(latest)
	if err != nil {
		t.Fatalf("reading latest symlink: %v", err)
	}
	if target != runDir {
		t.Errorf("latest symlink: got %q, want %q", target, runDir)
	}
}

func TestCreateRunDirUnique(t *testing.T) {
	base := t.TempDir()
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		runDir, err := result.CreateRunDir(base)
		if err != nil {
			t.Fatalf("CreateRunDir: %v", err)
		}
		if seen[runDir] {
			t.Fatalf("run dir %s reused", runDir)
		}
		seen[runDir] = true
	}
}

func TestEvaluationDir(t *testing.T) {
	base := t.TempDir()
	dir := result.EvaluationDir(base, "Python", "SVM (Python)", "cross_validation")
	expected := filepath.Join(base, "evaluations", "python", "svm-python", "cross-validation")
	if dir != expected {
		t.Errorf("got %q, want %q", dir, expected)
	}
}

func TestCollectEvaluations(t *testing.T) {
	runDir := t.TempDir()
	for _, m := range []*result.EvaluationMeta{
		{ID: "b", Engine: "Python", Scheme: "SVM", Mode: "none"},
		{ID: "a", Engine: "Native", Scheme: "ZeroR", Mode: "none"},
		{ID: "c", Engine: "Native", Scheme: "KNN", Mode: "none"},
	} {
		if err := result.WriteEvaluationMeta(result.EvaluationDir(runDir, m.Engine, m.Scheme, m.Mode), m); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(runDir, "meta.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	metas, err := result.CollectEvaluations(runDir)
	if err != nil {
		t.Fatalf("CollectEvaluations: %v", err)
	}
	var ids string
	for _, m := range metas {
		ids += m.ID
	}
	if ids != "cab" {
		t.Errorf("order: got %q, want %q", ids, "cab")
	}
}

func TestIndexHistory(t *testing.T) {
	idx, err := result.OpenIndex(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer idx.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, pct := range []float64{80, 85, 90} {
		meta := &result.EvaluationMeta{
			ID:        string(rune('a' + i)),
			Engine:    "Native",
			Scheme:    "KNN",
			Mode:      "cross_validation",
			Nominal:   true,
			Performed: true,
			Fields:    []result.Field{{Name: "Percent correct", Value: pct}},
			CreatedAt: start.Add(time.Duration(i) * time.Hour),
		}
		if err := idx.Record("run-"+meta.ID, meta); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := idx.Record("other", &result.EvaluationMeta{ID: "z", Scheme: "ZeroR", CreatedAt: start}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{"run-c", "run-b", "run-a"}},
		{2, []string{"run-c", "run-b"}},
	}
	for _, tt := range tests {
		hist, err := idx.History("KNN", tt.limit)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(hist) != len(tt.want) {
			t.Fatalf("limit %d: got %d entries, want %d", tt.limit, len(hist), len(tt.want))
		}
		for i, h := range hist {
			if h.RunDir != tt.want[i] {
				t.Errorf("limit %d entry %d: got %q, want %q", tt.limit, i, h.RunDir, tt.want[i])
			}
		}
	}

	hist, _ := idx.History("KNN", 1)
	if v, ok := hist[0].Meta.Number("Percent correct"); !ok || v != 90 {
		t.Errorf("latest percent correct: got %v", v)
	}
}
