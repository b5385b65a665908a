// Package learner holds the in-process learning algorithms used by the
// Native engine.
package learner

import (
	"github.com/signalnine/crucible/internal/model"
)

type options struct {
	specs []model.OptionSpec
	vals  map[string]string
}

func newOptions(specs ...model.OptionSpec) options {
	vals, _ := model.OptionValues(specs, nil)
	return options{specs: specs, vals: vals}
}

func (o *options) Options() []string {
	opts, _ := model.BuildOptions(o.specs, o.vals)
	return opts
}

func (o *options) SetOptions(opts []string) error {
	vals, err := model.OptionValues(o.specs, opts)
	if err != nil {
		return err
	}
	o.vals = vals
	return nil
}

func (o *options) OptionSpecs() []model.OptionSpec {
	return o.specs
}

func (o *options) clone() options {
	vals := make(map[string]string, len(o.vals))
	for k, v := range o.vals {
		vals[k] = v
	}
	return options{specs: o.specs, vals: vals}
}

func (o *options) float(name string, def float64) float64 {
	return model.FloatValue(o.vals, name, def)
}

func (o *options) int(name string, def int) int {
	return model.IntValue(o.vals, name, def)
}
