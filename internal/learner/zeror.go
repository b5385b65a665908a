package learner

import (
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// ZeroR predicts the training class distribution, or the training mean for
// numeric targets, regardless of the input row.
type ZeroR struct {
	nominal bool
	dist    []float64
	mean    float64
}

func NewZeroR() *ZeroR { return &ZeroR{} }

func (z *ZeroR) Name() string { return "ZeroR" }

func (z *ZeroR) Fit(train *data.Dataset) error {
	if err := z.CheckData(train); err != nil {
		return err
	}
	z.nominal = train.NominalClass()
	if z.nominal {
		z.dist = train.ClassCounts()
		for i := range z.dist {
			z.dist[i]++
		}
		model.Normalize(z.dist)
		return nil
	}
	sum, n := 0.0, 0
	for _, r := range labelled(train) {
		sum += r[train.ClassIndex]
		n++
	}
	z.mean = data.Missing
	if n > 0 {
		z.mean = sum / float64(n)
	}
	return nil
}

func (z *ZeroR) Predict(data.Row) ([]float64, error) {
	if z.nominal {
		if z.dist == nil {
			return nil, fmt.Errorf("ZeroR: model not trained")
		}
		return append([]float64(nil), z.dist...), nil
	}
	return []float64{z.mean}, nil
}

func (z *ZeroR) Options() []string { return nil }

func (z *ZeroR) SetOptions(opts []string) error {
	if len(opts) > 0 {
		return fmt.Errorf("ZeroR takes no options, got %v", opts)
	}
	return nil
}

func (z *ZeroR) FreshCopy() (model.Model, error) { return NewZeroR(), nil }

func (z *ZeroR) OptionSpecs() []model.OptionSpec { return nil }

func (z *ZeroR) CheckData(header *data.Dataset) error {
	return model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: true,
		StringAttributes:  true,
		MissingValues:     true,
		NominalClass:      true,
		NumericClass:      true,
	}.Test(header)
}
