package learner

import (
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// Logistic is multinomial logistic regression with an L2 penalty, fitted
// by full-batch gradient descent on standardised features.
type Logistic struct {
	options
	enc *encoder
	w   [][]float64
}

func NewLogistic() *Logistic {
	return &Logistic{options: newOptions(
		model.OptionSpec{Name: "R", Description: "Ridge penalty.", Type: model.Float, Default: "1.0E-4"},
		model.OptionSpec{Name: "M", Description: "Maximum number of iterations.", Type: model.Int, Default: "200"},
		model.OptionSpec{Name: "L", Description: "Learning rate.", Type: model.Float, Default: "0.5"},
	)}
}

func (l *Logistic) Name() string { return "Logistic" }

func (l *Logistic) Fit(train *data.Dataset) error {
	if err := l.CheckData(train); err != nil {
		return err
	}
	ridge := l.float("R", 1e-4)
	iters := l.int("M", 200)
	rate := l.float("L", 0.5)

	l.enc = newEncoder(train, standardize)
	k := train.NumClasses()
	width := l.enc.dim + 1
	rows := labelled(train)
	xs := make([][]float64, len(rows))
	for i, r := range rows {
		xs[i] = make([]float64, width)
		xs[i][0] = 1
		l.enc.encode(r, xs[i][1:])
	}

	l.w = make([][]float64, k)
	grad := make([][]float64, k)
	for c := range l.w {
		l.w[c] = make([]float64, width)
		grad[c] = make([]float64, width)
	}
	if len(rows) == 0 {
		return nil
	}
	n := float64(len(rows))
	for it := 0; it < iters; it++ {
		for c := range grad {
			for j := range grad[c] {
				grad[c][j] = 0
			}
		}
		for i, x := range xs {
			p := l.distribution(x)
			y := int(rows[i][train.ClassIndex])
			for c := range p {
				g := p[c]
				if c == y {
					g--
				}
				for j, v := range x {
					grad[c][j] += g * v
				}
			}
		}
		for c := range l.w {
			for j := range l.w[c] {
				step := grad[c][j] / n
				if j > 0 {
					step += ridge * l.w[c][j]
				}
				l.w[c][j] -= rate * step
			}
		}
	}
	return nil
}

func (l *Logistic) distribution(x []float64) []float64 {
	scores := make([]float64, len(l.w))
	for c, w := range l.w {
		for j, v := range x {
			scores[c] += w[j] * v
		}
	}
	return softmax(scores)
}

func (l *Logistic) Predict(r data.Row) ([]float64, error) {
	if l.enc == nil {
		return nil, fmt.Errorf("Logistic: model not trained")
	}
	x := make([]float64, l.enc.dim+1)
	x[0] = 1
	l.enc.encode(r, x[1:])
	return l.distribution(x), nil
}

func (l *Logistic) FreshCopy() (model.Model, error) {
	return &Logistic{options: l.clone()}, nil
}

func (l *Logistic) CheckData(header *data.Dataset) error {
	return model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: true,
		MissingValues:     true,
		NominalClass:      true,
	}.Test(header)
}
