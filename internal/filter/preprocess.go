package filter

import (
	"fmt"
	"math"
	"strconv"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
	"gonum.org/v1/gonum/stat"
)

// transformRows applies fn to a copy of every row of d, labelled with header.
func transformRows(d, header *data.Dataset, fn func(data.Row) data.Row) *data.Dataset {
	out := header.Header()
	out.Rows = make([]data.Row, 0, d.Len())
	for _, r := range d.Rows {
		out.Rows = append(out.Rows, fn(r.Copy()))
	}
	return out
}

// numericColumns lists numeric attributes other than the class.
func numericColumns(d *data.Dataset) []int {
	var cols []int
	for i, a := range d.Attributes {
		if i != d.ClassIndex && a.Kind == data.Numeric {
			cols = append(cols, i)
		}
	}
	return cols
}

func present(d *data.Dataset, col int) []float64 {
	var vals []float64
	for _, r := range d.Rows {
		if v := r[col]; !data.IsMissing(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

// Discretize replaces numeric attributes with equal-width bins.
type Discretize struct {
	base
	cuts map[int][]float64
}

func NewDiscretize() *Discretize {
	return &Discretize{base: newBase("Discretize", Preprocessing,
		model.OptionSpec{Name: "B", Description: "Number of bins.", Type: model.Int, Default: "10"},
	)}
}

func (f *Discretize) Init(train *data.Dataset) (*data.Dataset, error) {
	bins := f.int("B", 10)
	if bins < 1 {
		return nil, fmt.Errorf("Discretize: need at least one bin, got %d", bins)
	}
	f.cuts = make(map[int][]float64)
	header := train.Header()
	for _, col := range numericColumns(train) {
		vals := present(train, col)
		var cuts []float64
		if len(vals) > 0 {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, v := range vals {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
			if hi > lo {
				width := (hi - lo) / float64(bins)
				for i := 1; i < bins; i++ {
					cuts = append(cuts, lo+float64(i)*width)
				}
			}
		}
		f.cuts[col] = cuts
		header.Attributes[col] = data.NominalAttribute(train.Attributes[col].Name, binLabels(cuts)...)
	}
	f.output = header
	return transformRows(train, header, f.bin), nil
}

func binLabels(cuts []float64) []string {
	if len(cuts) == 0 {
		return []string{"All"}
	}
	num := func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
	labels := make([]string, 0, len(cuts)+1)
	labels = append(labels, "(-inf-"+num(cuts[0])+"]")
	for i := 1; i < len(cuts); i++ {
		labels = append(labels, "("+num(cuts[i-1])+"-"+num(cuts[i])+"]")
	}
	return append(labels, "("+num(cuts[len(cuts)-1])+"-inf)")
}

func (f *Discretize) bin(r data.Row) data.Row {
	for col, cuts := range f.cuts {
		v := r[col]
		if data.IsMissing(v) {
			continue
		}
		idx := len(cuts)
		for i, c := range cuts {
			if v <= c {
				idx = i
				break
			}
		}
		r[col] = float64(idx)
	}
	return r
}

func (f *Discretize) Apply(r data.Row) (data.Row, error) {
	if err := f.checkInit(); err != nil {
		return nil, err
	}
	return f.bin(r.Copy()), nil
}

func (f *Discretize) Copy() (Filter, error) { return copyOf(f) }

// Normalize scales numeric attributes to [0, 1] using the training range.
type Normalize struct {
	base
	lo, span map[int]float64
}

func NewNormalize() *Normalize {
	return &Normalize{base: newBase("Normalize", Preprocessing)}
}

func (f *Normalize) Init(train *data.Dataset) (*data.Dataset, error) {
	f.lo = make(map[int]float64)
	f.span = make(map[int]float64)
	for _, col := range numericColumns(train) {
		lo, hi := 0.0, 0.0
		if vals := present(train, col); len(vals) > 0 {
			lo, hi = math.Inf(1), math.Inf(-1)
			for _, v := range vals {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
		f.lo[col], f.span[col] = lo, hi-lo
	}
	f.output = train.Header()
	return transformRows(train, f.output, f.scale), nil
}

func (f *Normalize) scale(r data.Row) data.Row {
	for col, lo := range f.lo {
		if v := r[col]; !data.IsMissing(v) {
			if f.span[col] > 0 {
				r[col] = (v - lo) / f.span[col]
			} else {
				r[col] = 0
			}
		}
	}
	return r
}

func (f *Normalize) Apply(r data.Row) (data.Row, error) {
	if err := f.checkInit(); err != nil {
		return nil, err
	}
	return f.scale(r.Copy()), nil
}

func (f *Normalize) Copy() (Filter, error) { return copyOf(f) }

// Standardize centres numeric attributes on zero with unit variance.
type Standardize struct {
	base
	mean, sd map[int]float64
}

func NewStandardize() *Standardize {
	return &Standardize{base: newBase("Standardize", Preprocessing)}
}

func (f *Standardize) Init(train *data.Dataset) (*data.Dataset, error) {
	f.mean = make(map[int]float64)
	f.sd = make(map[int]float64)
	for _, col := range numericColumns(train) {
		mean, sd := 0.0, 0.0
		if vals := present(train, col); len(vals) > 1 {
			mean, sd = stat.MeanStdDev(vals, nil)
		} else if len(vals) == 1 {
			mean = vals[0]
		}
		f.mean[col], f.sd[col] = mean, sd
	}
	f.output = train.Header()
	return transformRows(train, f.output, f.scale), nil
}

func (f *Standardize) scale(r data.Row) data.Row {
	for col, mean := range f.mean {
		if v := r[col]; !data.IsMissing(v) {
			r[col] = v - mean
			if sd := f.sd[col]; sd > 0 {
				r[col] /= sd
			}
		}
	}
	return r
}

func (f *Standardize) Apply(r data.Row) (data.Row, error) {
	if err := f.checkInit(); err != nil {
		return nil, err
	}
	return f.scale(r.Copy()), nil
}

func (f *Standardize) Copy() (Filter, error) { return copyOf(f) }

// ReplaceMissingValues fills numeric gaps with the training mean and
// nominal gaps with the training mode.
type ReplaceMissingValues struct {
	base
	fill map[int]float64
}

func NewReplaceMissingValues() *ReplaceMissingValues {
	return &ReplaceMissingValues{base: newBase("ReplaceMissingValues", Preprocessing)}
}

func (f *ReplaceMissingValues) Init(train *data.Dataset) (*data.Dataset, error) {
	f.fill = make(map[int]float64)
	for i, a := range train.Attributes {
		if i == train.ClassIndex {
			continue
		}
		vals := present(train, i)
		if len(vals) == 0 {
			continue
		}
		switch a.Kind {
		case data.Numeric:
			f.fill[i] = stat.Mean(vals, nil)
		case data.Nominal:
			counts := make([]float64, len(a.Values))
			for _, v := range vals {
				counts[int(v)]++
			}
			f.fill[i] = float64(model.MaxIndex(counts))
		}
	}
	f.output = train.Header()
	return transformRows(train, f.output, f.replace), nil
}

func (f *ReplaceMissingValues) replace(r data.Row) data.Row {
	for col, v := range f.fill {
		if data.IsMissing(r[col]) {
			r[col] = v
		}
	}
	return r
}

func (f *ReplaceMissingValues) Apply(r data.Row) (data.Row, error) {
	if err := f.checkInit(); err != nil {
		return nil, err
	}
	return f.replace(r.Copy()), nil
}

func (f *ReplaceMissingValues) Copy() (Filter, error) { return copyOf(f) }
