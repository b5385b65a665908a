package filter

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// Resample draws a random sample of the training rows, with replacement
// unless -no-replacement is set.
type Resample struct{ base }

func NewResample() *Resample {
	return &Resample{newBase("Resample", Sampling,
		model.OptionSpec{Name: "Z", Description: "Sample size as a percentage of the input.", Type: model.Float, Default: "100"},
		model.OptionSpec{Name: "S", Description: "Random seed.", Type: model.Int, Default: "1"},
		model.OptionSpec{Name: "no-replacement", Description: "Sample without replacement.", Type: model.Bool},
	)}
}

func (f *Resample) Init(train *data.Dataset) (*data.Dataset, error) {
	pct := f.float("Z", 100)
	if pct < 0 {
		return nil, fmt.Errorf("Resample: negative sample size %v", pct)
	}
	rng := rand.New(rand.NewSource(int64(f.int("S", 1))))
	n := int(math.Round(float64(train.Len()) * pct / 100))
	out := train.Header()
	f.output = train.Header()
	if train.Len() == 0 {
		return out, nil
	}
	if f.flag("no-replacement") {
		if n > train.Len() {
			n = train.Len()
		}
		for _, i := range rng.Perm(train.Len())[:n] {
			out.Rows = append(out.Rows, train.Rows[i].Copy())
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		out.Rows = append(out.Rows, train.Rows[rng.Intn(train.Len())].Copy())
	}
	return out, nil
}

func (f *Resample) Apply(r data.Row) (data.Row, error) { return r, f.checkInit() }

func (f *Resample) Copy() (Filter, error) { return copyOf(f) }

// SpreadSubsample drops rows of the frequent classes until the ratio
// between the largest and smallest class is at most -M (0 = uniform).
type SpreadSubsample struct{ base }

func NewSpreadSubsample() *SpreadSubsample {
	return &SpreadSubsample{newBase("SpreadSubsample", Sampling,
		model.OptionSpec{Name: "M", Description: "Maximum class spread, 0 for a uniform distribution.", Type: model.Float, Default: "0"},
		model.OptionSpec{Name: "S", Description: "Random seed.", Type: model.Int, Default: "1"},
	)}
}

func (f *SpreadSubsample) Init(train *data.Dataset) (*data.Dataset, error) {
	if !train.NominalClass() {
		return nil, fmt.Errorf("%w: SpreadSubsample needs a nominal class", model.ErrCannotHandle)
	}
	f.output = train.Header()
	counts := train.ClassCounts()
	least := math.Inf(1)
	for _, c := range counts {
		if c > 0 {
			least = math.Min(least, c)
		}
	}
	limit := least
	if spread := f.float("M", 0); spread > 0 {
		limit = least * spread
	}

	rng := rand.New(rand.NewSource(int64(f.int("S", 1))))
	taken := make([]float64, len(counts))
	out := train.Header()
	for _, i := range rng.Perm(train.Len()) {
		r := train.Rows[i]
		cv := r[train.ClassIndex]
		if data.IsMissing(cv) || taken[int(cv)] >= limit {
			continue
		}
		taken[int(cv)]++
		out.Rows = append(out.Rows, r.Copy())
	}
	return out, nil
}

func (f *SpreadSubsample) Apply(r data.Row) (data.Row, error) { return r, f.checkInit() }

func (f *SpreadSubsample) Copy() (Filter, error) { return copyOf(f) }
