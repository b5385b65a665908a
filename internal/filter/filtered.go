package filter

import (
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/mlog"
	"github.com/signalnine/crucible/internal/model"
)

// FilteredModel trains Base on the output of Filter and passes every
// prediction row through the same filter.
type FilteredModel struct {
	Filter Filter
	Base   model.Model
}

func NewFilteredModel(f Filter, base model.Model) *FilteredModel {
	return &FilteredModel{Filter: f, Base: base}
}

func (m *FilteredModel) Name() string { return "FilteredModel" }

func (m *FilteredModel) Fit(train *data.Dataset) error {
	out, err := m.Filter.Init(train)
	if err != nil {
		return fmt.Errorf("filtering training data: %w", err)
	}
	return m.Base.Fit(out)
}

func (m *FilteredModel) Predict(r data.Row) ([]float64, error) {
	fr, err := m.Filter.Apply(r)
	if err != nil {
		return nil, err
	}
	return m.Base.Predict(fr)
}

func (m *FilteredModel) EfficientBatchPrediction() bool {
	return model.EfficientBatch(m.Base)
}

func (m *FilteredModel) PredictBatch(rows *data.Dataset) ([][]float64, error) {
	header := m.Filter.OutputHeader()
	if header == nil {
		return nil, fmt.Errorf("FilteredModel: model not trained")
	}
	filtered := header.Header()
	for _, r := range rows.Rows {
		fr, err := m.Filter.Apply(r)
		if err != nil {
			return nil, err
		}
		filtered.Rows = append(filtered.Rows, fr)
	}
	if bp, ok := m.Base.(model.BatchPredictor); ok {
		return bp.PredictBatch(filtered)
	}
	preds := make([][]float64, len(filtered.Rows))
	for i, r := range filtered.Rows {
		p, err := m.Base.Predict(r)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}
	return preds, nil
}

// Options renders as -F <filter spec> -W <base> -- <base options>.
func (m *FilteredModel) Options() []string {
	opts := []string{"-F", Spec(m.Filter), "-W", m.Base.Name(), "--"}
	return append(opts, m.Base.Options()...)
}

func (m *FilteredModel) SetOptions(opts []string) error {
	for i := 0; i < len(opts); i++ {
		switch opts[i] {
		case "--":
			return m.Base.SetOptions(opts[i+1:])
		case "-F":
			if i+1 >= len(opts) {
				return fmt.Errorf("FilteredModel: -F needs a filter")
			}
			i++
			f, err := Parse(opts[i])
			if err != nil {
				return err
			}
			m.Filter = f
		case "-W":
			if i+1 >= len(opts) || opts[i+1] != m.Base.Name() {
				return fmt.Errorf("FilteredModel: cannot change base model with -W")
			}
			i++
		default:
			return fmt.Errorf("FilteredModel: unknown option %q", opts[i])
		}
	}
	return nil
}

func (m *FilteredModel) FreshCopy() (model.Model, error) {
	f, err := m.Filter.Copy()
	if err != nil {
		return nil, err
	}
	b, err := m.Base.FreshCopy()
	if err != nil {
		return nil, err
	}
	return NewFilteredModel(f, b), nil
}

// CheckData tests the base model against the header the filter produces.
func (m *FilteredModel) CheckData(header *data.Dataset) error {
	f, err := m.Filter.Copy()
	if err != nil {
		return err
	}
	out, err := f.Init(header.Header())
	if err != nil {
		return err
	}
	return model.CheckData(m.Base, out)
}

func (m *FilteredModel) SetVariables(vars map[string]string) {
	if eh, ok := m.Base.(model.EnvironmentHandler); ok {
		eh.SetVariables(vars)
	}
}

func (m *FilteredModel) SetLogger(l mlog.Logger) {
	if lh, ok := m.Base.(model.LogHandler); ok {
		lh.SetLogger(l)
	}
}

// Unwrap returns the innermost model beneath any filtered models.
func Unwrap(m model.Model) model.Model {
	for {
		fm, ok := m.(*FilteredModel)
		if !ok {
			return m
		}
		m = fm.Base
	}
}

// Contains reports whether a filter of class is applied anywhere in m.
func Contains(m model.Model, class string) bool {
	for {
		fm, ok := m.(*FilteredModel)
		if !ok {
			return false
		}
		if hasFilter(fm.Filter, class) {
			return true
		}
		m = fm.Base
	}
}

func hasFilter(f Filter, class string) bool {
	if f.Class() == class {
		return true
	}
	if c, ok := f.(*Chain); ok {
		for _, sub := range c.filters {
			if hasFilter(sub, class) {
				return true
			}
		}
	}
	return false
}
