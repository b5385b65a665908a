package scheme

import (
	"fmt"
	"sort"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/filter"
	"github.com/signalnine/crucible/internal/learner"
	"github.com/signalnine/crucible/internal/model"
)

type nativeEntry struct {
	newModel func() model.Model
	flags    Flags
	binary   bool
}

var nativeSchemes = map[string]nativeEntry{
	"Logistic regression":       {newModel: func() model.Model { return learner.NewLogistic() }},
	"Naive Bayes":               {newModel: func() model.Model { return learner.NewNaiveBayes() }},
	"Naive Bayes incremental":   {newModel: func() model.Model { return learner.NewNaiveBayes() }, flags: Flags{IncrementalTraining: true}},
	"Linear regression":         {newModel: func() model.Model { return learner.NewLinearRegression() }},
	"Support vector classifier": {newModel: func() model.Model { return learner.NewLinearSVM() }, binary: true},
	"Nearest neighbours":        {newModel: func() model.Model { return learner.NewKNN() }},
	"Baseline predictor":        {newModel: func() model.Model { return learner.NewZeroR() }},
}

// NativeNames lists the schemes backed by in-process learners.
func NativeNames() []string {
	names := make([]string, 0, len(nativeSchemes))
	for n := range nativeSchemes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Native is a scheme backed by an in-process learner.
type Native struct {
	Base
	entry nativeEntry
	model model.Model
}

func NewNative(name string) (*Native, error) {
	e, ok := nativeSchemes[name]
	if !ok {
		return nil, fmt.Errorf("no native learner for %q", name)
	}
	return &Native{Base: NewBase(name), entry: e, model: e.newModel()}, nil
}

func (s *Native) Flags() Flags { return s.entry.flags }

func (s *Native) Options() []string { return s.model.Options() }

func (s *Native) SetOptions(opts []string) error { return s.model.SetOptions(opts) }

// ConfiguredModel returns an untrained model ready for data shaped like
// header. Binary-only learners are wrapped one-vs-rest for targets with
// more than two labels.
func (s *Native) ConfiguredModel(header *data.Dataset) (model.Model, error) {
	m, err := s.model.FreshCopy()
	if err != nil {
		return nil, err
	}
	if s.entry.binary && header.NominalClass() && header.NumClasses() > 2 {
		m = learner.NewOneVsRest(m)
	}
	return s.Adjust(m)
}

// SetConfiguredModel takes the options of a model previously returned by
// ConfiguredModel, looking through filters and one-vs-rest wrappers.
func (s *Native) SetConfiguredModel(m model.Model) error {
	inner := filter.Unwrap(m)
	if ovr, ok := inner.(*learner.OneVsRest); ok {
		inner = ovr.Base
	}
	if inner.Name() != s.model.Name() {
		return fmt.Errorf("scheme %s expects a %s model, got %s", s.Name(), s.model.Name(), inner.Name())
	}
	return s.model.SetOptions(inner.Options())
}

func (s *Native) CanHandleData(ds *data.Dataset) (bool, []string) {
	return s.check(s, ds)
}

func (s *Native) Info() (*Info, error) {
	params, err := parameters(s.model)
	if err != nil {
		return nil, err
	}
	return &Info{Scheme: s.Name(), Model: s.model.Name(), Parameters: params}, nil
}

func (s *Native) SetParameters(params map[string]string) error {
	return applyParameters(s.model, params)
}
