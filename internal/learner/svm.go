package learner

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// LinearSVM is a binary linear support vector machine trained with the
// Pegasos stochastic sub-gradient method. The second class label is the
// positive class.
type LinearSVM struct {
	options
	enc *encoder
	w   []float64
}

func NewLinearSVM() *LinearSVM {
	return &LinearSVM{options: newOptions(
		model.OptionSpec{Name: "L", Description: "Regularisation parameter lambda.", Type: model.Float, Default: "0.01"},
		model.OptionSpec{Name: "E", Description: "Number of epochs.", Type: model.Int, Default: "50"},
		model.OptionSpec{Name: "S", Description: "Random seed.", Type: model.Int, Default: "1"},
	)}
}

func (s *LinearSVM) Name() string { return "LinearSVM" }

func (s *LinearSVM) Fit(train *data.Dataset) error {
	if err := s.CheckData(train); err != nil {
		return err
	}
	lambda := s.float("L", 0.01)
	epochs := s.int("E", 50)
	rng := rand.New(rand.NewSource(int64(s.int("S", 1))))

	s.enc = newEncoder(train, standardize)
	width := s.enc.dim + 1
	rows := labelled(train)
	xs := make([][]float64, len(rows))
	ys := make([]float64, len(rows))
	for i, r := range rows {
		xs[i] = make([]float64, width)
		xs[i][0] = 1
		s.enc.encode(r, xs[i][1:])
		ys[i] = -1
		if r[train.ClassIndex] == 1 {
			ys[i] = 1
		}
	}
	s.w = make([]float64, width)
	if len(rows) == 0 {
		return nil
	}
	t := 0
	for e := 0; e < epochs; e++ {
		for range rows {
			t++
			i := rng.Intn(len(rows))
			eta := 1 / (lambda * float64(t))
			margin := ys[i] * dot(s.w, xs[i])
			for j := range s.w {
				s.w[j] *= 1 - eta*lambda
			}
			if margin < 1 {
				for j := range s.w {
					s.w[j] += eta * ys[i] * xs[i][j]
				}
			}
		}
	}
	return nil
}

// Predict squashes the margin through a logistic function.
func (s *LinearSVM) Predict(r data.Row) ([]float64, error) {
	if s.enc == nil {
		return nil, fmt.Errorf("LinearSVM: model not trained")
	}
	x := make([]float64, len(s.w))
	x[0] = 1
	s.enc.encode(r, x[1:])
	p := 1 / (1 + math.Exp(-2*dot(s.w, x)))
	return []float64{1 - p, p}, nil
}

func (s *LinearSVM) FreshCopy() (model.Model, error) {
	return &LinearSVM{options: s.clone()}, nil
}

func (s *LinearSVM) CheckData(header *data.Dataset) error {
	return model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: true,
		MissingValues:     true,
		NominalClass:      true,
		BinaryClassOnly:   true,
	}.Test(header)
}
