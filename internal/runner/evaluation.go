package runner

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/signalnine/crucible/internal/config"
	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/evaluator"
	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/mlog"
	"github.com/signalnine/crucible/internal/model"
	"github.com/signalnine/crucible/internal/result"
	"github.com/signalnine/crucible/internal/scheme"
	"github.com/signalnine/crucible/internal/vars"
)

type EvalOpts struct {
	Registry  *engine.Registry
	Scheme    *config.Scheme
	Train     *data.Dataset
	Test      *data.Dataset
	Mode      evaluator.Mode
	Config    evaluator.Config
	Messages  messages.Catalog
	Logger    mlog.Logger
	Variables vars.Resolver
	// RunDir receives meta.json when set.
	RunDir string
	// Index records the evaluation in the history database when set.
	Index *result.Index
}

// LoadData reads the training data and, for separate test set runs, the
// test data named by cfg. The test set is read against the training
// header, so a label keeps its training index whatever order it first
// appears in and a label the training data never saw is an error.
func LoadData(cfg *config.Config) (train, test *data.Dataset, err error) {
	opts := &data.CSVOpts{
		Class:         cfg.Dataset.Class,
		StringColumns: cfg.Dataset.StringColumns,
		Missing:       cfg.Dataset.Missing,
	}
	train, err = data.LoadCSVFile(cfg.Dataset.Path, opts)
	if err != nil {
		return nil, nil, err
	}
	if cfg.TestSet.Path != "" {
		test, err = data.LoadCSVFile(cfg.TestSet.Path, &data.CSVOpts{
			Missing: cfg.Dataset.Missing,
			Header:  train,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("test set %s: %w", cfg.TestSet.Path, err)
		}
	}
	return train, test, nil
}

// ConfigureScheme resolves sc through the registry and applies its
// options, parameters and filters.
func ConfigureScheme(reg *engine.Registry, sc *config.Scheme) (scheme.Scheme, error) {
	s, err := reg.Scheme(sc.Engine, sc.Scheme)
	if err != nil {
		return nil, err
	}
	if sc.Options != "" {
		opts, err := model.SplitOptions(sc.Options)
		if err != nil {
			return nil, fmt.Errorf("scheme %s: options: %w", sc.Scheme, err)
		}
		if err := s.SetOptions(opts); err != nil {
			return nil, fmt.Errorf("scheme %s: options: %w", sc.Scheme, err)
		}
	}
	if len(sc.Parameters) > 0 {
		if err := s.SetParameters(sc.Parameters); err != nil {
			return nil, fmt.Errorf("scheme %s: parameters: %w", sc.Scheme, err)
		}
	}
	for _, f := range sc.Sampling {
		s.Sampling().Put(f.Class, f.Options)
	}
	for _, f := range sc.Preprocessing {
		s.Preprocessing().Put(f.Class, f.Options)
	}
	return s, nil
}

// RunEvaluation evaluates one configured scheme on opts.Train. The returned
// meta is written and recorded even when the evaluation fails, with the
// failure in its Error field.
func RunEvaluation(opts *EvalOpts) (*result.EvaluationMeta, error) {
	start := time.Now()
	meta := &result.EvaluationMeta{
		ID:        uuid.New().String(),
		Engine:    opts.Scheme.Engine,
		Scheme:    opts.Scheme.Scheme,
		Mode:      opts.Mode.String(),
		Nominal:   opts.Train.NominalClass(),
		CreatedAt: start.UTC(),
	}
	err := evaluate(opts, meta)
	meta.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		meta.Error = err.Error()
	}

	if opts.RunDir != "" {
		dir := result.EvaluationDir(opts.RunDir, meta.Engine, meta.Scheme, meta.Mode)
		if werr := result.WriteEvaluationMeta(dir, meta); werr != nil {
			return meta, fmt.Errorf("writing meta: %w", werr)
		}
	}
	if opts.Index != nil {
		if rerr := opts.Index.Record(opts.RunDir, meta); rerr != nil {
			log.Printf("warning: recording %s in history: %v", meta.Scheme, rerr)
		}
	}
	return meta, err
}

func evaluate(opts *EvalOpts, meta *result.EvaluationMeta) error {
	s, err := ConfigureScheme(opts.Registry, opts.Scheme)
	if err != nil {
		return err
	}
	meta.Options = model.JoinOptions(s.Options())

	ok, msgs := s.CanHandleData(opts.Train)
	meta.Messages = msgs
	if !ok {
		return fmt.Errorf("scheme %s cannot handle the data: %s", s.Name(), strings.Join(msgs, "; "))
	}

	m, err := s.ConfiguredModel(opts.Train.Header())
	if err != nil {
		return fmt.Errorf("configuring model: %w", err)
	}

	ev := evaluator.New(&evaluator.Opts{
		Mode:      opts.Mode,
		Config:    opts.Config,
		Messages:  opts.Messages,
		Logger:    opts.Logger,
		Variables: opts.Variables,
	})
	if err := ev.Initialize(opts.Train, m); err != nil {
		return err
	}
	if opts.Mode == evaluator.SeparateTestSet {
		if _, err := ev.BuildFinalModel(); err != nil {
			return fmt.Errorf("building final model: %w", err)
		}
	}
	if err := ev.PerformEvaluation(opts.Test); err != nil {
		return fmt.Errorf("performing evaluation: %w", err)
	}
	meta.Performed = ev.WasEvaluationPerformed()

	row, ok, err := ev.EvalRow("", 0)
	if err != nil {
		return err
	}
	if ok {
		meta.Fields = fields(row)
	}
	return nil
}

// fields converts a metrics row for storage. Non-finite statistics become
// null.
func fields(row evaluator.MetricsRow) []result.Field {
	out := make([]result.Field, len(row))
	for i, f := range row {
		v := f.Value
		if x, ok := v.(float64); ok && (math.IsNaN(x) || math.IsInf(x, 0)) {
			v = nil
		}
		out[i] = result.Field{Name: f.Name, Value: v}
	}
	return out
}

type CheckResult struct {
	Scheme   config.Scheme
	OK       bool
	Messages []string
	Err      error
}

// Check runs the data capability check of every configured scheme.
// Schemes that cannot be resolved report the resolution error.
func Check(reg *engine.Registry, schemes []config.Scheme, train *data.Dataset) []CheckResult {
	out := make([]CheckResult, 0, len(schemes))
	for _, sc := range schemes {
		res := CheckResult{Scheme: sc}
		s, err := ConfigureScheme(reg, &sc)
		if err != nil {
			res.Err = err
		} else {
			res.OK, res.Messages = s.CanHandleData(train)
		}
		out = append(out, res)
	}
	return out
}
