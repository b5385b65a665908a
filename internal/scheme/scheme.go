// Package scheme binds a named algorithm to a concrete model, its options
// and the filters that run in front of it.
package scheme

import (
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/filter"
	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/model"
)

// Flags are static capabilities of a scheme.
type Flags struct {
	IncrementalTraining  bool
	ResumableTraining    bool
	StringAttributes     bool
	EnvironmentVariables bool
}

type Parameter struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	Value   string `json:"value"`
	Tip     string `json:"tip,omitempty"`
	Backend bool   `json:"backend,omitempty"`
}

// Info describes a scheme's parameters with their current values.
type Info struct {
	Scheme     string      `json:"scheme"`
	Model      string      `json:"model"`
	Parameters []Parameter `json:"parameters"`
}

type Scheme interface {
	Name() string
	Flags() Flags
	CanHandleData(ds *data.Dataset) (bool, []string)
	ConfiguredModel(header *data.Dataset) (model.Model, error)
	SetConfiguredModel(m model.Model) error
	Options() []string
	SetOptions(opts []string) error
	Info() (*Info, error)
	SetParameters(params map[string]string) error
	Sampling() *filter.Configs
	Preprocessing() *filter.Configs
}

// Names lists every algorithm a scheme may be requested for. Engines
// support a subset.
var Names = []string{
	"Logistic regression",
	"Naive Bayes",
	"Naive Bayes incremental",
	"Naive Bayes multinomial",
	"Decision tree classifier",
	"Decision tree regressor",
	"Linear regression",
	"Support vector classifier",
	"Support vector regressor",
	"Random forest classifier",
	"Random forest regressor",
	"Gradient boosted trees",
	"Multi-layer perceptron classifier",
	"Multi-layer perceptron regressor",
	"Nearest neighbours",
	"Baseline predictor",
	"Deep learning network",
	"Extreme gradient boosting classifier",
	"Extreme gradient boosting regressor",
}

// Known reports whether name is one of Names.
func Known(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Base holds what every scheme shares: its name, its filter
// configurations and the message catalog used for data checks.
type Base struct {
	name          string
	sampling      filter.Configs
	preprocessing filter.Configs
	msgs          messages.Catalog
}

func NewBase(name string) Base {
	return Base{name: name, msgs: messages.Default()}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Sampling() *filter.Configs { return &b.sampling }

func (b *Base) Preprocessing() *filter.Configs { return &b.preprocessing }

func (b *Base) SetMessages(c messages.Catalog) { b.msgs = messages.OrDefault(c) }

// Adjust wraps m in the scheme's sampling and preprocessing filters.
func (b *Base) Adjust(m model.Model) (model.Model, error) {
	return filter.Compose(m, &b.sampling, &b.preprocessing)
}

// check runs the data checks shared by every scheme: a class must be set,
// the configured model must accept the data, and string attributes draw a
// warning when the scheme cannot handle them.
func (b *Base) check(s Scheme, ds *data.Dataset) (bool, []string) {
	var msgs []string
	if ds.ClassAttribute() == nil {
		return false, []string{b.msgs.Get(messages.NoClassAttribute)}
	}
	msgs = append(msgs, b.StringAttributeWarning(ds, s.Flags())...)
	m, err := s.ConfiguredModel(ds.Header())
	if err != nil {
		return false, append(msgs, b.msgs.Get(messages.CannotHandleData, b.name, err))
	}
	if err := model.CheckData(m, ds.Header()); err != nil {
		return false, append(msgs, b.msgs.Get(messages.CannotHandleData, b.name, err))
	}
	return true, msgs
}

// StringAttributeWarning returns one warning when ds has string attributes
// that a scheme with flags cannot handle.
func (b *Base) StringAttributeWarning(ds *data.Dataset, flags Flags) []string {
	if flags.StringAttributes || !ds.HasKind(data.String, true) {
		return nil
	}
	return []string{b.msgs.Get(messages.StringAttributesWarning, b.name)}
}

// parameters describes a model's options using its option specs.
func parameters(m model.Model) ([]Parameter, error) {
	od, ok := m.(model.OptionDescriber)
	if !ok {
		return nil, nil
	}
	specs := od.OptionSpecs()
	vals, err := model.OptionValues(specs, m.Options())
	if err != nil {
		return nil, fmt.Errorf("reading %s options: %w", m.Name(), err)
	}
	params := make([]Parameter, 0, len(specs))
	for _, s := range specs {
		params = append(params, Parameter{
			Name:  s.Name,
			Label: s.Description,
			Type:  s.Type.String(),
			Value: vals[s.Name],
			Tip:   "default " + defaultText(s),
		})
	}
	return params, nil
}

func defaultText(s model.OptionSpec) string {
	if s.Type == model.Bool {
		return "false"
	}
	return s.Default
}

// applyParameters sets m's options from params, keeping current values
// for anything params omits.
func applyParameters(m model.Model, params map[string]string) error {
	od, ok := m.(model.OptionDescriber)
	if !ok {
		if len(params) > 0 {
			return fmt.Errorf("%s takes no parameters", m.Name())
		}
		return nil
	}
	specs := od.OptionSpecs()
	vals, err := model.OptionValues(specs, m.Options())
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.Name] = true
	}
	for k, v := range params {
		if !known[k] {
			return fmt.Errorf("%s has no parameter %q", m.Name(), k)
		}
		vals[k] = v
	}
	opts, err := model.BuildOptions(specs, vals)
	if err != nil {
		return err
	}
	return m.SetOptions(opts)
}
