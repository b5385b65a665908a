package learner

import (
	"math"

	"github.com/signalnine/crucible/internal/data"
	"gonum.org/v1/gonum/stat"
)

type scaling int

const (
	noScaling scaling = iota
	standardize
	rangeNormalize
)

// encoder turns rows into dense feature vectors: numeric attributes are
// scaled, nominal attributes are one-hot encoded, and the class and string
// attributes are skipped. Missing numerics become the training mean.
type encoder struct {
	cols    []int
	nominal []bool
	offset  []int
	center  []float64
	scale   []float64
	mean    []float64
	dim     int
}

func newEncoder(train *data.Dataset, mode scaling) *encoder {
	e := &encoder{}
	for i, a := range train.Attributes {
		if i == train.ClassIndex || a.Kind == data.String {
			continue
		}
		e.cols = append(e.cols, i)
		e.nominal = append(e.nominal, a.Kind == data.Nominal)
		e.offset = append(e.offset, e.dim)
		center, scale, mean := 0.0, 1.0, 0.0
		if a.Kind == data.Nominal {
			e.dim += len(a.Values)
		} else {
			col := presentValues(train, i)
			e.dim++
			if len(col) > 0 {
				mean = stat.Mean(col, nil)
				switch mode {
				case standardize:
					center = mean
					if sd := stat.StdDev(col, nil); sd > 0 && !math.IsNaN(sd) {
						scale = sd
					}
				case rangeNormalize:
					lo, hi := bounds(col)
					center = lo
					if hi > lo {
						scale = hi - lo
					}
				}
			}
		}
		e.center = append(e.center, center)
		e.scale = append(e.scale, scale)
		e.mean = append(e.mean, mean)
	}
	return e
}

func (e *encoder) encode(row data.Row, out []float64) {
	for i := range out {
		out[i] = 0
	}
	for j, col := range e.cols {
		v := row[col]
		if e.nominal[j] {
			if !data.IsMissing(v) {
				out[e.offset[j]+int(v)] = 1
			}
			continue
		}
		if data.IsMissing(v) {
			v = e.mean[j]
		}
		out[e.offset[j]] = (v - e.center[j]) / e.scale[j]
	}
}

// matrix encodes every row of d with a leading intercept column when bias is set.
func (e *encoder) matrix(d *data.Dataset, bias bool) ([]float64, int) {
	width := e.dim
	if bias {
		width++
	}
	out := make([]float64, len(d.Rows)*width)
	for i, r := range d.Rows {
		dst := out[i*width : (i+1)*width]
		if bias {
			dst[0] = 1
			e.encode(r, dst[1:])
		} else {
			e.encode(r, dst)
		}
	}
	return out, width
}

func presentValues(d *data.Dataset, col int) []float64 {
	var vals []float64
	for _, r := range d.Rows {
		if v := r[col]; !data.IsMissing(v) {
			vals = append(vals, v)
		}
	}
	return vals
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// labelled returns the rows whose class value is present.
func labelled(d *data.Dataset) []data.Row {
	rows := make([]data.Row, 0, len(d.Rows))
	for _, r := range d.Rows {
		if !data.IsMissing(r[d.ClassIndex]) {
			rows = append(rows, r)
		}
	}
	return rows
}
