package learner

import (
	"fmt"
	"sort"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
	"gonum.org/v1/gonum/mat"
)

// KNN predicts from the k nearest training rows under Euclidean distance on
// range-normalised features. Batches are scored with one matrix product.
type KNN struct {
	options
	enc     *encoder
	train   *mat.Dense
	norms   []float64
	targets []float64
	nominal bool
	classes int
}

func NewKNN() *KNN {
	return &KNN{options: newOptions(
		model.OptionSpec{Name: "K", Description: "Number of neighbours.", Type: model.Int, Default: "1"},
	)}
}

func (k *KNN) Name() string { return "KNN" }

func (k *KNN) Fit(train *data.Dataset) error {
	if err := k.CheckData(train); err != nil {
		return err
	}
	k.enc = newEncoder(train, rangeNormalize)
	k.nominal = train.NominalClass()
	k.classes = train.NumClasses()
	rows := labelled(train)
	k.targets = make([]float64, len(rows))
	k.norms = make([]float64, len(rows))
	k.train = nil
	if len(rows) == 0 || k.enc.dim == 0 {
		for i, r := range rows {
			k.targets[i] = r[train.ClassIndex]
		}
		return nil
	}
	xs := make([]float64, len(rows)*k.enc.dim)
	for i, r := range rows {
		x := xs[i*k.enc.dim : (i+1)*k.enc.dim]
		k.enc.encode(r, x)
		k.targets[i] = r[train.ClassIndex]
		k.norms[i] = dot(x, x)
	}
	k.train = mat.NewDense(len(rows), k.enc.dim, xs)
	return nil
}

func (k *KNN) Predict(r data.Row) ([]float64, error) {
	d := data.New("", nil)
	d.Rows = []data.Row{r}
	preds, err := k.PredictBatch(d)
	if err != nil {
		return nil, err
	}
	return preds[0], nil
}

func (k *KNN) EfficientBatchPrediction() bool { return true }

func (k *KNN) PredictBatch(rows *data.Dataset) ([][]float64, error) {
	if k.enc == nil {
		return nil, fmt.Errorf("KNN: model not trained")
	}
	out := make([][]float64, len(rows.Rows))
	if len(k.targets) == 0 {
		for i := range out {
			out[i] = k.vote(nil)
		}
		return out, nil
	}
	dists := make([][]float64, len(rows.Rows))
	if k.train == nil {
		for i := range dists {
			dists[i] = make([]float64, len(k.targets))
		}
	} else {
		dim := k.enc.dim
		xs := make([]float64, len(rows.Rows)*dim)
		for i, r := range rows.Rows {
			k.enc.encode(r, xs[i*dim:(i+1)*dim])
		}
		test := mat.NewDense(len(rows.Rows), dim, xs)
		var cross mat.Dense
		cross.Mul(test, k.train.T())
		for i := range dists {
			x := xs[i*dim : (i+1)*dim]
			self := dot(x, x)
			dists[i] = make([]float64, len(k.targets))
			for j := range dists[i] {
				dists[i][j] = self + k.norms[j] - 2*cross.At(i, j)
			}
		}
	}
	for i, d := range dists {
		out[i] = k.vote(nearest(d, k.int("K", 1)))
	}
	return out, nil
}

func (k *KNN) vote(neighbours []int) []float64 {
	if !k.nominal {
		if len(neighbours) == 0 {
			return []float64{data.Missing}
		}
		sum := 0.0
		for _, j := range neighbours {
			sum += k.targets[j]
		}
		return []float64{sum / float64(len(neighbours))}
	}
	dist := make([]float64, k.classes)
	if len(neighbours) == 0 {
		for c := range dist {
			dist[c] = 1
		}
	}
	for _, j := range neighbours {
		dist[int(k.targets[j])]++
	}
	return model.Normalize(dist)
}

func nearest(dists []float64, n int) []int {
	idx := make([]int, len(dists))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return dists[idx[a]] < dists[idx[b]] })
	if n > len(idx) {
		n = len(idx)
	}
	if n < 1 {
		n = 1
	}
	return idx[:n]
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func (k *KNN) FreshCopy() (model.Model, error) {
	return &KNN{options: k.clone()}, nil
}

func (k *KNN) CheckData(header *data.Dataset) error {
	return model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: true,
		MissingValues:     true,
		NominalClass:      true,
		NumericClass:      true,
	}.Test(header)
}
