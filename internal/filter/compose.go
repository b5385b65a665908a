package filter

import (
	"fmt"

	"github.com/signalnine/crucible/internal/model"
)

// Configs is an ordered set of filter configurations keyed by class.
// Putting an existing class replaces its options in place.
type Configs struct {
	specs []ConfigSpec
}

type ConfigSpec struct {
	Class   string
	Options string
}

func (c *Configs) Put(class, options string) {
	for i := range c.specs {
		if c.specs[i].Class == class {
			c.specs[i].Options = options
			return
		}
	}
	c.specs = append(c.specs, ConfigSpec{Class: class, Options: options})
}

func (c *Configs) Remove(class string) {
	for i := range c.specs {
		if c.specs[i].Class == class {
			c.specs = append(c.specs[:i], c.specs[i+1:]...)
			return
		}
	}
}

func (c *Configs) Specs() []ConfigSpec {
	if c == nil {
		return nil
	}
	return append([]ConfigSpec(nil), c.specs...)
}

func (c *Configs) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specs)
}

func (c *Configs) build() ([]Filter, error) {
	filters := make([]Filter, 0, c.Len())
	for _, s := range c.Specs() {
		f, err := New(s.Class, s.Options)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// Compose wraps m so that the sampling filters run first and the
// preprocessing filters after them.
//
// An unwrapped model gets a new chain. A model wrapped in a single filter
// gets a chain of the new filters followed by the existing one, unless the
// existing filter's class is among the new ones. A model wrapped in a
// chain has same-class filters replaced in place, new sampling filters
// inserted after the chain's leading sampling filters and new
// preprocessing filters appended. Applying the same configuration twice
// yields the same pipeline, and m itself is never modified.
func Compose(m model.Model, sampling, preprocessing *Configs) (model.Model, error) {
	if sampling.Len() == 0 && preprocessing.Len() == 0 {
		return m, nil
	}
	samplers, err := sampling.build()
	if err != nil {
		return nil, fmt.Errorf("sampling filters: %w", err)
	}
	preprocessors, err := preprocessing.build()
	if err != nil {
		return nil, fmt.Errorf("preprocessing filters: %w", err)
	}

	fm, ok := m.(*FilteredModel)
	if !ok {
		return NewFilteredModel(NewChain(append(samplers, preprocessors...)...), m), nil
	}

	chain, isChain := fm.Filter.(*Chain)
	if !isChain {
		filters := append(samplers, preprocessors...)
		if !hasClass(filters, fm.Filter.Class()) {
			filters = append(filters, fm.Filter)
		}
		return NewFilteredModel(NewChain(filters...), fm.Base), nil
	}

	merged := chain.Filters()
	var newSamplers, newPreprocessors []Filter
	for _, f := range samplers {
		if i := indexOf(merged, f.Class()); i >= 0 {
			merged[i] = f
		} else {
			newSamplers = append(newSamplers, f)
		}
	}
	for _, f := range preprocessors {
		if i := indexOf(merged, f.Class()); i >= 0 {
			merged[i] = f
		} else {
			newPreprocessors = append(newPreprocessors, f)
		}
	}
	at := 0
	for at < len(merged) && merged[at].Kind() == Sampling {
		at++
	}
	out := make([]Filter, 0, len(merged)+len(newSamplers)+len(newPreprocessors))
	out = append(out, merged[:at]...)
	out = append(out, newSamplers...)
	out = append(out, merged[at:]...)
	out = append(out, newPreprocessors...)
	return NewFilteredModel(NewChain(out...), fm.Base), nil
}

func indexOf(filters []Filter, class string) int {
	for i, f := range filters {
		if f.Class() == class {
			return i
		}
	}
	return -1
}

func hasClass(filters []Filter, class string) bool {
	return indexOf(filters, class) >= 0
}
