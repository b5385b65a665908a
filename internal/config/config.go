package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/crucible/internal/evaluator"
)

type Config struct {
	Dataset    Dataset           `yaml:"dataset"`
	TestSet    TestSet           `yaml:"test_set"`
	Evaluation Evaluation        `yaml:"evaluation"`
	Schemes    []Scheme          `yaml:"schemes"`
	Backends   Backends          `yaml:"backends"`
	Messages   string            `yaml:"messages"`
	Variables  map[string]string `yaml:"variables"`
	Results    Results           `yaml:"results"`
	Parallel   int               `yaml:"parallel"`
}

type Dataset struct {
	Path          string   `yaml:"path"`
	Class         string   `yaml:"class"`
	StringColumns []string `yaml:"string_columns"`
	Missing       string   `yaml:"missing"`
}

type TestSet struct {
	Path string `yaml:"path"`
}

type Evaluation struct {
	Mode            string `yaml:"mode"`
	Folds           int    `yaml:"folds"`
	PercentageSplit int    `yaml:"percentage_split"`
	Seed            *int64 `yaml:"seed"`
	ComputeAUC      bool   `yaml:"compute_auc"`
	OutputIRMetrics bool   `yaml:"output_ir_metrics"`
	PreserveOrder   bool   `yaml:"preserve_order"`
}

type Scheme struct {
	Engine        string            `yaml:"engine"`
	Scheme        string            `yaml:"scheme"`
	Options       string            `yaml:"options"`
	Parameters    map[string]string `yaml:"parameters"`
	Sampling      []Filter          `yaml:"sampling"`
	Preprocessing []Filter          `yaml:"preprocessing"`
}

type Filter struct {
	Class   string `yaml:"class"`
	Options string `yaml:"options"`
}

type Backends struct {
	PythonCommand string `yaml:"python_command"`
	PythonPath    string `yaml:"python_path"`
	DockerImage   string `yaml:"docker_image"`
	EnvFile       string `yaml:"env_file"`
	CheckBackends *bool  `yaml:"check_backends"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// EvalMode returns the parsed evaluation mode. Load has already checked it.
func (c *Config) EvalMode() evaluator.Mode {
	m, _ := evaluator.ParseMode(c.Evaluation.Mode)
	return m
}

// EvalConfig returns the evaluator settings with defaults applied.
func (c *Config) EvalConfig() evaluator.Config {
	ec := evaluator.DefaultConfig()
	ec.Folds = c.Evaluation.Folds
	ec.PercentageSplit = c.Evaluation.PercentageSplit
	if c.Evaluation.Seed != nil {
		ec.Seed = *c.Evaluation.Seed
	}
	ec.ComputeAUC = c.Evaluation.ComputeAUC
	ec.OutputIRMetrics = c.Evaluation.OutputIRMetrics
	ec.PreserveOrder = c.Evaluation.PreserveOrder
	return ec
}

// CheckBackends reports whether backends are probed at start-up (default true).
func (c *Config) CheckBackends() bool {
	return c.Backends.CheckBackends == nil || *c.Backends.CheckBackends
}

func validate(cfg *Config) error {
	if cfg.Dataset.Path == "" {
		return fmt.Errorf("dataset: path is required")
	}
	if cfg.Dataset.Class == "" {
		return fmt.Errorf("dataset: class is required")
	}
	if len(cfg.Schemes) == 0 {
		return fmt.Errorf("no schemes defined")
	}
	for i, s := range cfg.Schemes {
		if s.Engine == "" {
			return fmt.Errorf("scheme %d: engine is required", i)
		}
		if s.Scheme == "" {
			return fmt.Errorf("scheme %d: scheme is required", i)
		}
		for _, f := range append(append([]Filter(nil), s.Sampling...), s.Preprocessing...) {
			if f.Class == "" {
				return fmt.Errorf("scheme %q: filter class is required", s.Scheme)
			}
		}
	}

	e := &cfg.Evaluation
	if e.Mode == "" {
		e.Mode = evaluator.CrossValidation.String()
	}
	mode, err := evaluator.ParseMode(e.Mode)
	if err != nil {
		return err
	}
	if e.Folds == 0 {
		e.Folds = 10
	}
	if e.Folds < 2 {
		return fmt.Errorf("evaluation: folds must be at least 2")
	}
	if e.PercentageSplit == 0 {
		e.PercentageSplit = 66
	}
	if e.PercentageSplit < 1 || e.PercentageSplit > 99 {
		return fmt.Errorf("evaluation: percentage_split must be between 1 and 99")
	}
	if mode == evaluator.SeparateTestSet && cfg.TestSet.Path == "" {
		return fmt.Errorf("test_set: path is required for %s", mode)
	}

	if cfg.Dataset.Missing == "" {
		cfg.Dataset.Missing = "?"
	}
	if cfg.Backends.PythonCommand == "" {
		cfg.Backends.PythonCommand = "python3"
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	return nil
}
