// Package model defines the capabilities a trainable predictor can
// advertise. Optional behaviour is discovered with type assertions.
package model

import (
	"math"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/mlog"
)

// Model is a trainable predictor. Predict returns a class distribution for
// nominal targets and a single value for numeric ones.
type Model interface {
	Name() string
	Fit(train *data.Dataset) error
	Predict(row data.Row) ([]float64, error)
	Options() []string
	SetOptions(opts []string) error
	FreshCopy() (Model, error)
}

// BatchPredictor predicts many rows in one call. EfficientBatchPrediction
// reports whether doing so is preferable to predicting row by row.
type BatchPredictor interface {
	Model
	PredictBatch(rows *data.Dataset) ([][]float64, error)
	EfficientBatchPrediction() bool
}

// Updateable models can be trained one row at a time after Fit.
type Updateable interface {
	Model
	Update(row data.Row) error
}

type EnvironmentHandler interface {
	SetVariables(vars map[string]string)
}

type LogHandler interface {
	SetLogger(l mlog.Logger)
}

// DataChecker reports whether the model can be trained on data shaped
// like header.
type DataChecker interface {
	CheckData(header *data.Dataset) error
}

// EfficientBatch reports whether m prefers batch prediction.
func EfficientBatch(m Model) bool {
	bp, ok := m.(BatchPredictor)
	return ok && bp.EfficientBatchPrediction()
}

// CheckData runs m's data check, if it has one.
func CheckData(m Model, header *data.Dataset) error {
	if dc, ok := m.(DataChecker); ok {
		return dc.CheckData(header)
	}
	return nil
}

// Unclassified reports whether a prediction carries no usable answer.
func Unclassified(pred []float64, nominal bool) bool {
	if len(pred) == 0 {
		return true
	}
	if !nominal {
		return math.IsNaN(pred[0])
	}
	sum := 0.0
	for _, p := range pred {
		if math.IsNaN(p) {
			return true
		}
		sum += p
	}
	return sum <= 0
}

// Normalize scales dist to sum to one. All-zero input is left alone.
func Normalize(dist []float64) []float64 {
	sum := 0.0
	for _, p := range dist {
		sum += p
	}
	if sum <= 0 {
		return dist
	}
	for i := range dist {
		dist[i] /= sum
	}
	return dist
}

// MaxIndex returns the index of the largest element, or -1 if none is positive.
func MaxIndex(dist []float64) int {
	best, idx := 0.0, -1
	for i, p := range dist {
		if p > best {
			best, idx = p, i
		}
	}
	return idx
}
