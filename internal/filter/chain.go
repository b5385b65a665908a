package filter

import (
	"fmt"

	"github.com/signalnine/crucible/internal/data"
)

// Chain applies its filters in order, each one seeing the output of the
// previous one.
type Chain struct {
	filters []Filter
	output  *data.Dataset
}

func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

func (c *Chain) Class() string { return "Chain" }

// Kind is Sampling only when every member samples.
func (c *Chain) Kind() Kind {
	for _, f := range c.filters {
		if f.Kind() == Preprocessing {
			return Preprocessing
		}
	}
	return Sampling
}

func (c *Chain) Filters() []Filter {
	return append([]Filter(nil), c.filters...)
}

// Index returns the position of the first filter of class, or -1.
func (c *Chain) Index(class string) int {
	for i, f := range c.filters {
		if f.Class() == class {
			return i
		}
	}
	return -1
}

// Options renders as -F "<spec>" per member.
func (c *Chain) Options() []string {
	var opts []string
	for _, f := range c.filters {
		opts = append(opts, "-F", Spec(f))
	}
	return opts
}

func (c *Chain) SetOptions(opts []string) error {
	var filters []Filter
	for i := 0; i < len(opts); i++ {
		if opts[i] != "-F" || i+1 >= len(opts) {
			return fmt.Errorf("Chain: expected -F <filter>, got %q", opts[i])
		}
		i++
		f, err := Parse(opts[i])
		if err != nil {
			return err
		}
		filters = append(filters, f)
	}
	c.filters = filters
	c.output = nil
	return nil
}

func (c *Chain) Init(train *data.Dataset) (*data.Dataset, error) {
	out := train
	for _, f := range c.filters {
		var err error
		if out, err = f.Init(out); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Class(), err)
		}
	}
	if out == train {
		out = train.Copy()
	}
	c.output = out.Header()
	return out, nil
}

func (c *Chain) Apply(r data.Row) (data.Row, error) {
	if c.output == nil {
		return nil, fmt.Errorf("filter Chain used before Init")
	}
	for _, f := range c.filters {
		var err error
		if r, err = f.Apply(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (c *Chain) OutputHeader() *data.Dataset { return c.output }

func (c *Chain) Copy() (Filter, error) {
	filters := make([]Filter, len(c.filters))
	for i, f := range c.filters {
		cp, err := f.Copy()
		if err != nil {
			return nil, err
		}
		filters[i] = cp
	}
	return NewChain(filters...), nil
}
