package learner

import (
	"fmt"
	"math"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// NaiveBayes models numeric attributes with a per-class normal
// distribution and nominal attributes with Laplace-smoothed counts. It can
// be updated one row at a time.
type NaiveBayes struct {
	options
	header *data.Dataset
	counts []float64
	total  float64
	// numeric: per attribute, per class running sums
	n, sum, sumSq [][]float64
	// nominal: per attribute, per class, per value counts
	freq [][][]float64
}

func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{options: newOptions(
		model.OptionSpec{Name: "V", Description: "Minimum standard deviation for numeric attributes.", Type: model.Float, Default: "0.001"},
	)}
}

func (nb *NaiveBayes) Name() string { return "NaiveBayes" }

func (nb *NaiveBayes) Fit(train *data.Dataset) error {
	if err := nb.CheckData(train); err != nil {
		return err
	}
	nb.header = train.Header()
	k := train.NumClasses()
	attrs := len(train.Attributes)
	nb.counts = make([]float64, k)
	nb.total = 0
	nb.n = make([][]float64, attrs)
	nb.sum = make([][]float64, attrs)
	nb.sumSq = make([][]float64, attrs)
	nb.freq = make([][][]float64, attrs)
	for i, a := range train.Attributes {
		if i == train.ClassIndex {
			continue
		}
		switch a.Kind {
		case data.Numeric:
			nb.n[i] = make([]float64, k)
			nb.sum[i] = make([]float64, k)
			nb.sumSq[i] = make([]float64, k)
		case data.Nominal:
			nb.freq[i] = make([][]float64, k)
			for c := range nb.freq[i] {
				nb.freq[i][c] = make([]float64, len(a.Values))
				for v := range nb.freq[i][c] {
					nb.freq[i][c][v] = 1
				}
			}
		}
	}
	for _, r := range train.Rows {
		nb.add(r)
	}
	return nil
}

func (nb *NaiveBayes) Update(row data.Row) error {
	if nb.header == nil {
		return fmt.Errorf("NaiveBayes: update before fit")
	}
	nb.add(row)
	return nil
}

func (nb *NaiveBayes) add(r data.Row) {
	cv := r[nb.header.ClassIndex]
	if data.IsMissing(cv) {
		return
	}
	c := int(cv)
	nb.counts[c]++
	nb.total++
	for i := range nb.header.Attributes {
		v := r[i]
		if i == nb.header.ClassIndex || data.IsMissing(v) {
			continue
		}
		switch {
		case nb.n[i] != nil:
			nb.n[i][c]++
			nb.sum[i][c] += v
			nb.sumSq[i][c] += v * v
		case nb.freq[i] != nil:
			nb.freq[i][c][int(v)]++
		}
	}
}

func (nb *NaiveBayes) Predict(r data.Row) ([]float64, error) {
	if nb.header == nil {
		return nil, fmt.Errorf("NaiveBayes: model not trained")
	}
	k := len(nb.counts)
	minSD := nb.float("V", 0.001)
	logp := make([]float64, k)
	for c := 0; c < k; c++ {
		logp[c] = math.Log((nb.counts[c] + 1) / (nb.total + float64(k)))
		for i := range nb.header.Attributes {
			v := r[i]
			if i == nb.header.ClassIndex || data.IsMissing(v) {
				continue
			}
			switch {
			case nb.n[i] != nil:
				logp[c] += nb.logNormal(i, c, v, minSD)
			case nb.freq[i] != nil:
				f := nb.freq[i][c]
				sum := 0.0
				for _, x := range f {
					sum += x
				}
				logp[c] += math.Log(f[int(v)] / sum)
			}
		}
	}
	return softmax(logp), nil
}

func (nb *NaiveBayes) logNormal(attr, class int, v, minSD float64) float64 {
	n := nb.n[attr][class]
	if n == 0 {
		return 0
	}
	mean := nb.sum[attr][class] / n
	variance := nb.sumSq[attr][class]/n - mean*mean
	sd := math.Sqrt(math.Max(variance, 0))
	if sd < minSD {
		sd = minSD
	}
	z := (v - mean) / sd
	return -0.5*z*z - math.Log(sd*math.Sqrt(2*math.Pi))
}

func (nb *NaiveBayes) FreshCopy() (model.Model, error) {
	return &NaiveBayes{options: nb.clone()}, nil
}

func (nb *NaiveBayes) CheckData(header *data.Dataset) error {
	return model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: true,
		MissingValues:     true,
		NominalClass:      true,
	}.Test(header)
}

// softmax converts log scores to a normalised distribution.
func softmax(logp []float64) []float64 {
	top := math.Inf(-1)
	for _, l := range logp {
		top = math.Max(top, l)
	}
	out := make([]float64, len(logp))
	for i, l := range logp {
		out[i] = math.Exp(l - top)
	}
	return model.Normalize(out)
}
