package learner

import (
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// OneVsRest trains one copy of a binary model per class label and
// combines their positive-class probabilities.
type OneVsRest struct {
	Base   model.Model
	models []model.Model
	header *data.Dataset
}

func NewOneVsRest(base model.Model) *OneVsRest {
	return &OneVsRest{Base: base}
}

func (o *OneVsRest) Name() string { return "OneVsRest" }

func (o *OneVsRest) Fit(train *data.Dataset) error {
	if err := o.CheckData(train); err != nil {
		return err
	}
	o.header = train.Header()
	class := train.ClassAttribute()
	o.models = make([]model.Model, len(class.Values))
	for c := range class.Values {
		m, err := o.Base.FreshCopy()
		if err != nil {
			return err
		}
		if err := m.Fit(binarize(train, c)); err != nil {
			return fmt.Errorf("OneVsRest: class %s: %w", class.Values[c], err)
		}
		o.models[c] = m
	}
	return nil
}

func (o *OneVsRest) Predict(r data.Row) ([]float64, error) {
	if o.models == nil {
		return nil, fmt.Errorf("OneVsRest: model not trained")
	}
	dist := make([]float64, len(o.models))
	for c, m := range o.models {
		p, err := m.Predict(r)
		if err != nil {
			return nil, err
		}
		if len(p) == 2 {
			dist[c] = p[1]
		}
	}
	return model.Normalize(dist), nil
}

// Options renders as -W <base> -- <base options>.
func (o *OneVsRest) Options() []string {
	return append([]string{"-W", o.Base.Name(), "--"}, o.Base.Options()...)
}

func (o *OneVsRest) SetOptions(opts []string) error {
	for i, opt := range opts {
		if opt == "--" {
			return o.Base.SetOptions(opts[i+1:])
		}
	}
	return o.Base.SetOptions(opts)
}

func (o *OneVsRest) FreshCopy() (model.Model, error) {
	base, err := o.Base.FreshCopy()
	if err != nil {
		return nil, err
	}
	return NewOneVsRest(base), nil
}

func (o *OneVsRest) CheckData(header *data.Dataset) error {
	if !header.NominalClass() {
		return fmt.Errorf("%w: OneVsRest needs a nominal class", model.ErrCannotHandle)
	}
	if len(header.ClassAttribute().Values) == 0 {
		return fmt.Errorf("%w: class has no labels", model.ErrCannotHandle)
	}
	return model.CheckData(o.Base, binarize(header.Header(), 0))
}

// binarize relabels the class as {rest, label} for class index c.
func binarize(d *data.Dataset, c int) *data.Dataset {
	class := d.ClassAttribute()
	label := class.Values[c]
	b := d.Copy()
	b.Attributes[b.ClassIndex] = data.NominalAttribute(class.Name, "rest", label)
	for _, r := range b.Rows {
		v := r[b.ClassIndex]
		if data.IsMissing(v) {
			continue
		}
		if int(v) == c {
			r[b.ClassIndex] = 1
		} else {
			r[b.ClassIndex] = 0
		}
	}
	return b
}
