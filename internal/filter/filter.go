// Package filter implements row transforms that sit in front of a model:
// sampling filters that reshape the training data and preprocessing
// filters that rewrite attribute values.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

type Kind int

const (
	Sampling Kind = iota
	Preprocessing
)

func (k Kind) String() string {
	if k == Sampling {
		return "sampling"
	}
	return "preprocessing"
}

// Filter transforms data. Init learns from training data and returns the
// transformed copy; Apply transforms one test-time row. Sampling filters
// leave test rows untouched.
type Filter interface {
	Class() string
	Kind() Kind
	Options() []string
	SetOptions(opts []string) error
	Init(train *data.Dataset) (*data.Dataset, error)
	Apply(row data.Row) (data.Row, error)
	OutputHeader() *data.Dataset
	Copy() (Filter, error)
}

var constructors map[string]func() Filter

func init() {
	constructors = map[string]func() Filter{
		"Resample":             func() Filter { return NewResample() },
		"SpreadSubsample":      func() Filter { return NewSpreadSubsample() },
		"Discretize":           func() Filter { return NewDiscretize() },
		"Normalize":            func() Filter { return NewNormalize() },
		"Standardize":          func() Filter { return NewStandardize() },
		"ReplaceMissingValues": func() Filter { return NewReplaceMissingValues() },
		"Chain":                func() Filter { return NewChain() },
	}
}

// Classes lists the filter classes New understands.
func Classes() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New builds a filter of the given class configured with an option string.
func New(class, options string) (Filter, error) {
	ctor, ok := constructors[class]
	if !ok {
		return nil, fmt.Errorf("unknown filter %q", class)
	}
	f := ctor()
	opts, err := model.SplitOptions(options)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", class, err)
	}
	if err := f.SetOptions(opts); err != nil {
		return nil, fmt.Errorf("filter %s: %w", class, err)
	}
	return f, nil
}

// Spec renders f as "<class> <options>".
func Spec(f Filter) string {
	return strings.TrimSpace(f.Class() + " " + model.JoinOptions(f.Options()))
}

// Parse is the inverse of Spec.
func Parse(spec string) (Filter, error) {
	class, opts, _ := strings.Cut(strings.TrimSpace(spec), " ")
	return New(class, opts)
}

// base carries the option handling and output header shared by the
// built-in filters.
type base struct {
	class  string
	kind   Kind
	specs  []model.OptionSpec
	vals   map[string]string
	output *data.Dataset
}

func newBase(class string, kind Kind, specs ...model.OptionSpec) base {
	vals, _ := model.OptionValues(specs, nil)
	return base{class: class, kind: kind, specs: specs, vals: vals}
}

func (b *base) Class() string { return b.class }

func (b *base) Kind() Kind { return b.kind }

func (b *base) Options() []string {
	opts, _ := model.BuildOptions(b.specs, b.vals)
	return opts
}

func (b *base) SetOptions(opts []string) error {
	vals, err := model.OptionValues(b.specs, opts)
	if err != nil {
		return err
	}
	b.vals = vals
	return nil
}

func (b *base) OutputHeader() *data.Dataset { return b.output }

func (b *base) float(name string, def float64) float64 {
	return model.FloatValue(b.vals, name, def)
}

func (b *base) int(name string, def int) int {
	return model.IntValue(b.vals, name, def)
}

func (b *base) flag(name string) bool {
	return b.vals[name] == "true"
}

func (b *base) checkInit() error {
	if b.output == nil {
		return fmt.Errorf("filter %s used before Init", b.class)
	}
	return nil
}

// copyOf builds a fresh filter of f's class with f's options.
func copyOf(f Filter) (Filter, error) {
	c := constructors[f.Class()]()
	if err := c.SetOptions(f.Options()); err != nil {
		return nil, err
	}
	return c, nil
}
