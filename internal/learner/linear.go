package learner

import (
	"errors"
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ridge-regularised least squares solved through the
// normal equations.
type LinearRegression struct {
	options
	enc  *encoder
	coef []float64
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{options: newOptions(
		model.OptionSpec{Name: "R", Description: "Ridge parameter.", Type: model.Float, Default: "1.0E-8"},
	)}
}

func (lr *LinearRegression) Name() string { return "LinearRegression" }

func (lr *LinearRegression) Fit(train *data.Dataset) error {
	if err := lr.CheckData(train); err != nil {
		return err
	}
	lr.enc = newEncoder(train, standardize)
	rows := labelled(train)
	width := lr.enc.dim + 1
	if len(rows) == 0 {
		lr.coef = make([]float64, width)
		lr.coef[0] = data.Missing
		return nil
	}

	xs := make([]float64, 0, len(rows)*width)
	ys := make([]float64, len(rows))
	x := make([]float64, width)
	for i, r := range rows {
		x[0] = 1
		lr.enc.encode(r, x[1:])
		xs = append(xs, x...)
		ys[i] = r[train.ClassIndex]
	}
	X := mat.NewDense(len(rows), width, xs)
	y := mat.NewVecDense(len(rows), ys)

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	ridge := lr.float("R", 1e-8)
	for j := 1; j < width; j++ {
		xtx.Set(j, j, xtx.At(j, j)+ridge)
	}
	var xty, w mat.VecDense
	xty.MulVec(X.T(), y)
	// An ill-conditioned system still yields a usable solution.
	if err := w.SolveVec(&xtx, &xty); err != nil && !errors.As(err, new(mat.Condition)) {
		return fmt.Errorf("LinearRegression: solving normal equations: %w", err)
	}
	lr.coef = make([]float64, width)
	for j := range lr.coef {
		lr.coef[j] = w.AtVec(j)
	}
	return nil
}

func (lr *LinearRegression) Predict(r data.Row) ([]float64, error) {
	if lr.enc == nil {
		return nil, fmt.Errorf("LinearRegression: model not trained")
	}
	x := make([]float64, lr.enc.dim)
	lr.enc.encode(r, x)
	v := lr.coef[0]
	for j, xv := range x {
		v += lr.coef[j+1] * xv
	}
	return []float64{v}, nil
}

func (lr *LinearRegression) FreshCopy() (model.Model, error) {
	return &LinearRegression{options: lr.clone()}, nil
}

func (lr *LinearRegression) CheckData(header *data.Dataset) error {
	return model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: true,
		MissingValues:     true,
		NumericClass:      true,
	}.Test(header)
}
