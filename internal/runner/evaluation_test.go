package runner_test

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalnine/crucible/internal/config"
	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/evaluator"
	"github.com/signalnine/crucible/internal/result"
	"github.com/signalnine/crucible/internal/runner"
)

func flowers(perClass int, seed int64) *data.Dataset {
	d := data.New("flowers", []data.Attribute{
		data.NumericAttribute("sepallength"),
		data.NumericAttribute("sepalwidth"),
		data.NumericAttribute("petallength"),
		data.NumericAttribute("petalwidth"),
		data.NominalAttribute("class", "setosa", "versicolor", "virginica"),
	})
	d.SetClassIndex(4)
	r := rand.New(rand.NewSource(seed))
	for c := 0; c < 3; c++ {
		for i := 0; i < perClass; i++ {
			base := float64(c) * 1.5
			d.Add(data.Row{
				5 + base + r.NormFloat64()*0.4,
				3 - base/3 + r.NormFloat64()*0.3,
				1.5 + base*2 + r.NormFloat64()*0.4,
				0.2 + base + r.NormFloat64()*0.2,
				float64(c),
			})
		}
	}
	return d
}

func registry(t *testing.T) *engine.Registry {
	t.Helper()
	env := &engine.Environment{CheckBackends: false}
	if err := env.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { env.Teardown() })
	return engine.NewRegistry(env)
}

func TestRunEvaluationCrossValidation(t *testing.T) {
	runDir := t.TempDir()
	idx, err := result.OpenIndex(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	meta, err := runner.RunEvaluation(&runner.EvalOpts{
		Registry: registry(t),
		Scheme:   &config.Scheme{Engine: "Native", Scheme: "Naive Bayes"},
		Train:    flowers(20, 1),
		Mode:     evaluator.CrossValidation,
		Config:   evaluator.DefaultConfig(),
		RunDir:   runDir,
		Index:    idx,
	})
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}
	if !meta.Performed || meta.Error != "" {
		t.Fatalf("meta: performed=%v error=%q", meta.Performed, meta.Error)
	}
	if pct, ok := meta.Number("Percent correct"); !ok || pct < 80 {
		t.Errorf("percent correct: got %v", pct)
	}
	if n, _ := meta.Number("Total number of instances"); n != 60 {
		t.Errorf("instances: got %v, want 60", n)
	}

	path := filepath.Join(result.EvaluationDir(runDir, "Native", "Naive Bayes", "cross_validation"), "meta.json")
	stored, err := result.ReadEvaluationMeta(path)
	if err != nil {
		t.Fatalf("reading stored meta: %v", err)
	}
	if stored.ID != meta.ID {
		t.Errorf("stored id %q, want %q", stored.ID, meta.ID)
	}
	hist, err := idx.History("Naive Bayes", 0)
	if err != nil || len(hist) != 1 || hist[0].RunDir != runDir {
		t.Errorf("history: %v %v", hist, err)
	}
}

func TestRunEvaluationFailures(t *testing.T) {
	numeric := data.New("numeric", []data.Attribute{
		data.NumericAttribute("x"),
		data.NominalAttribute("y", "a", "b"),
	})
	numeric.SetClassIndex(1)
	numeric.Add(data.Row{1, 0})

	tests := []struct {
		name   string
		scheme config.Scheme
		train  *data.Dataset
		is     error
	}{
		{"unsupported", config.Scheme{Engine: "Native", Scheme: "Random forest classifier"}, flowers(5, 1), engine.ErrUnsupportedScheme},
		{"unknown engine", config.Scheme{Engine: "Spark", Scheme: "Naive Bayes"}, flowers(5, 1), engine.ErrUnknownEngine},
		{"refused data", config.Scheme{Engine: "Native", Scheme: "Linear regression"}, numeric, nil},
		{"bad options", config.Scheme{Engine: "Native", Scheme: "Nearest neighbours", Options: "-K x"}, flowers(5, 1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runDir := t.TempDir()
			meta, err := runner.RunEvaluation(&runner.EvalOpts{
				Registry: registry(t),
				Scheme:   &tt.scheme,
				Train:    tt.train,
				Mode:     evaluator.CrossValidation,
				Config:   evaluator.DefaultConfig(),
				RunDir:   runDir,
			})
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error %v is not %v", err, tt.is)
			}
			if meta.Error == "" || meta.Performed {
				t.Errorf("meta: %+v", meta)
			}
			dir := result.EvaluationDir(runDir, tt.scheme.Engine, tt.scheme.Scheme, "cross_validation")
			if _, err := os.Stat(filepath.Join(dir, "meta.json")); err != nil {
				t.Errorf("failed evaluation not written: %v", err)
			}
		})
	}
}

func TestRunEvaluationSeparateTestSet(t *testing.T) {
	train := flowers(20, 1)
	full := flowers(10, 2)
	test := train.Header()
	for _, r := range full.Rows {
		if r[4] < 2 {
			test.Add(r)
		}
	}
	cfg := evaluator.DefaultConfig()
	cfg.ComputeAUC = true

	meta, err := runner.RunEvaluation(&runner.EvalOpts{
		Registry: registry(t),
		Scheme: &config.Scheme{
			Engine:        "Native",
			Scheme:        "Nearest neighbours",
			Options:       "-K 3",
			Preprocessing: []config.Filter{{Class: "Standardize"}},
		},
		Train:  train,
		Test:   test,
		Mode:   evaluator.SeparateTestSet,
		Config: cfg,
	})
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}
	if meta.Options != "-K 3" {
		t.Errorf("options: got %q", meta.Options)
	}
	if n, _ := meta.Number("Total number of instances"); n != 20 {
		t.Errorf("instances: got %v, want 20", n)
	}
	var found bool
	for _, f := range meta.Fields {
		if f.Name == "virginica_ROC area" {
			found = true
			if f.Value != nil {
				t.Errorf("absent class ROC area: got %v, want null", f.Value)
			}
		}
	}
	if !found {
		t.Error("virginica_ROC area missing from fields")
	}
}

func TestRunEvaluationModeNone(t *testing.T) {
	meta, err := runner.RunEvaluation(&runner.EvalOpts{
		Registry: registry(t),
		Scheme:   &config.Scheme{Engine: "Native", Scheme: "Baseline predictor"},
		Train:    flowers(5, 1),
		Mode:     evaluator.None,
		Config:   evaluator.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}
	if meta.Performed || len(meta.Fields) != 0 {
		t.Errorf("mode none: performed=%v fields=%d", meta.Performed, len(meta.Fields))
	}
}

func TestCheck(t *testing.T) {
	results := runner.Check(registry(t), []config.Scheme{
		{Engine: "Native", Scheme: "Naive Bayes"},
		{Engine: "Native", Scheme: "Linear regression"},
		{Engine: "Docker", Scheme: "Naive Bayes"},
	}, flowers(5, 1))
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if !results[0].OK || results[0].Err != nil {
		t.Errorf("naive bayes: %+v", results[0])
	}
	if results[1].OK || len(results[1].Messages) == 0 {
		t.Errorf("linear regression on nominal class: %+v", results[1])
	}
	if !errors.Is(results[2].Err, engine.ErrEngineUnavailable) {
		t.Errorf("docker without image: %v", results[2].Err)
	}
}

func TestLoadData(t *testing.T) {
	dir := t.TempDir()
	csv := "x,y,label\n1,2,a\n3,4,b\n5,?,a\n"
	train := filepath.Join(dir, "train.csv")
	test := filepath.Join(dir, "test.csv")
	for _, p := range []string{train, test} {
		if err := os.WriteFile(p, []byte(csv), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &config.Config{
		Dataset: config.Dataset{Path: train, Class: "label", Missing: "?"},
		TestSet: config.TestSet{Path: test},
	}
	tr, te, err := runner.LoadData(cfg)
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if tr.Len() != 3 || te == nil || te.Len() != 3 {
		t.Fatalf("rows: train %d test %v", tr.Len(), te)
	}
	if !tr.NominalClass() {
		t.Error("label should be the nominal class")
	}

	cfg.Dataset.Path = filepath.Join(dir, "missing.csv")
	if _, _, err := runner.LoadData(cfg); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func TestLoadDataAlignsTestLabels(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, lines ...string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		body := "x,label\n" + strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	train := write("train.csv",
		"1.0,a", "1.2,a", "0.8,a", "1.1,a",
		"10.0,b", "10.2,b", "9.8,b", "10.1,b",
		"20.0,c", "20.2,c", "19.8,c", "20.1,c",
	)
	tests := []struct {
		name string
		rows []string
	}{
		{"training order", []string{"1.05,a", "10.05,b", "20.05,c"}},
		{"reversed", []string{"20.05,c", "10.05,b", "1.05,a"}},
		{"first label unseen until last", []string{"10.05,b", "20.05,c", "1.05,a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Dataset: config.Dataset{Path: train, Class: "label"},
				TestSet: config.TestSet{Path: write(tt.name+".csv", tt.rows...)},
			}
			tr, te, err := runner.LoadData(cfg)
			if err != nil {
				t.Fatalf("LoadData: %v", err)
			}
			meta, err := runner.RunEvaluation(&runner.EvalOpts{
				Registry: registry(t),
				Scheme:   &config.Scheme{Engine: "Native", Scheme: "Naive Bayes"},
				Train:    tr,
				Test:     te,
				Mode:     evaluator.SeparateTestSet,
				Config:   evaluator.DefaultConfig(),
			})
			if err != nil {
				t.Fatalf("RunEvaluation: %v", err)
			}
			if pct, _ := meta.Number("Percent correct"); pct != 100 {
				t.Errorf("percent correct: got %v, want 100", pct)
			}
		})
	}

	cfg := &config.Config{
		Dataset: config.Dataset{Path: train, Class: "label"},
		TestSet: config.TestSet{Path: write("unknown.csv", "1.05,a", "30.0,unknown")},
	}
	if _, _, err := runner.LoadData(cfg); err == nil || !strings.Contains(err.Error(), "unknown value") {
		t.Errorf("expected an unknown label error, got %v", err)
	}
}
