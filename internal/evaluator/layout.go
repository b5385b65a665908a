package evaluator

import (
	"errors"
	"fmt"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/model"
)

type FieldKind int

const (
	Text FieldKind = iota
	Number
)

type FieldMeta struct {
	Name string
	Kind FieldKind
}

// Field is one named value of a metrics row. Value is a string for Text
// fields and a float64 for Number fields.
type Field struct {
	Name  string
	Value interface{}
}

type MetricsRow []Field

// Get returns the value of the named field.
func (r MetricsRow) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

type column struct {
	FieldMeta
	value func(*Evaluation) (interface{}, error)
}

func text(name string, v string) column {
	return column{FieldMeta{name, Text}, func(*Evaluation) (interface{}, error) { return v, nil }}
}

func number(name string, f func(*Evaluation) float64) column {
	return column{FieldMeta{name, Number}, func(ev *Evaluation) (interface{}, error) { return f(ev), nil }}
}

func checked(name string, f func(*Evaluation) (float64, error)) column {
	return column{FieldMeta{name, Number}, func(ev *Evaluation) (interface{}, error) { return f(ev) }}
}

func perClass(c int, f func(*Evaluation, int) float64) func(*Evaluation) float64 {
	return func(ev *Evaluation) float64 { return f(ev, c) }
}

// columns is the single description of a metrics row shared by
// EvalRowMetadata and EvalRow.
func (e *Evaluator) columns(class *data.Attribute, stratified bool, stratValue string, batch int) []column {
	if e.mode == None {
		return nil
	}
	nominal := class.Kind == data.Nominal
	cols := []column{
		text("Scheme name", e.schemeName(batch)),
		text("Scheme options", e.schemeOptions()),
		text("Evaluation mode", e.modeText()),
	}
	if stratified {
		cols = append(cols, text("Stratification value", stratValue))
	}
	cols = append(cols, number("Unclassified instances", (*Evaluation).Unclassified))
	if nominal {
		cols = append(cols,
			number("Correctly classified instances", (*Evaluation).Correct),
			number("Incorrectly classified instances", (*Evaluation).Incorrect),
			number("Percent correct", (*Evaluation).PctCorrect),
			number("Percent incorrect", (*Evaluation).PctIncorrect),
		)
	}
	cols = append(cols,
		number("Mean absolute error", (*Evaluation).MeanAbsoluteError),
		number("Root mean squared error", (*Evaluation).RootMeanSquaredError),
	)
	if !nominal {
		cols = append(cols, checked("Correlation coefficient", (*Evaluation).CorrelationCoefficient))
	}
	if e.mode != Prequential {
		cols = append(cols,
			checked("Relative absolute error", (*Evaluation).RelativeAbsoluteError),
			checked("Root relative squared error", (*Evaluation).RootRelativeSquaredError),
		)
	}
	cols = append(cols, number("Total number of instances", (*Evaluation).NumInstances))
	if !nominal {
		return cols
	}
	cols = append(cols, number("Kappa statistic", (*Evaluation).Kappa))
	if e.cfg.OutputIRMetrics {
		for c, v := range class.Values {
			cols = append(cols,
				number(v+"_TP rate", perClass(c, (*Evaluation).TruePositiveRate)),
				number(v+"_FP rate", perClass(c, (*Evaluation).FalsePositiveRate)),
				number(v+"_Precision", perClass(c, (*Evaluation).Precision)),
				number(v+"_Recall", perClass(c, (*Evaluation).Recall)),
				number(v+"_F-measure", perClass(c, (*Evaluation).FMeasure)),
				number(v+"_MCC", perClass(c, (*Evaluation).MatthewsCorrelation)),
			)
		}
	}
	if e.cfg.ComputeAUC {
		for c, v := range class.Values {
			cols = append(cols,
				number(v+"_ROC area", perClass(c, (*Evaluation).AreaUnderROC)),
				number(v+"_PRC area", perClass(c, (*Evaluation).AreaUnderPRC)),
			)
		}
	}
	return append(cols, column{FieldMeta{"Confusion matrix", Text}, func(ev *Evaluation) (interface{}, error) {
		m, err := ev.MatrixString()
		if err == nil {
			e.log.LogBasic(m)
		}
		return m, err
	}})
}

func (e *Evaluator) schemeName(batch int) string {
	name := ""
	if e.template != nil {
		name = e.template.Name()
	}
	if batch > 0 {
		name = fmt.Sprintf("%d_%s", batch, name)
	}
	return name
}

func (e *Evaluator) schemeOptions() string {
	if e.template == nil {
		return ""
	}
	return model.JoinOptions(e.template.Options())
}

func (e *Evaluator) modeText() string {
	switch e.mode {
	case PercentageSplit:
		return fmt.Sprintf("%s %d%% seed %d", e.mode, e.cfg.PercentageSplit, e.cfg.Seed)
	case CrossValidation:
		return fmt.Sprintf("%s folds %d seed %d", e.mode, e.cfg.Folds, e.cfg.Seed)
	}
	return e.mode.String()
}

// EvalRowMetadata lists the fields EvalRow produces for data shaped like
// header, or like the training data when header is nil.
func (e *Evaluator) EvalRowMetadata(header *data.Dataset, stratified bool) ([]FieldMeta, error) {
	if header == nil {
		header = e.train
	}
	if header == nil {
		return nil, errors.New("no training data information to derive row metadata from")
	}
	class := header.ClassAttribute()
	if class == nil {
		return nil, errors.New("no class attribute set in training data information")
	}
	cols := e.columns(class, stratified, "", 0)
	meta := make([]FieldMeta, len(cols))
	for i, c := range cols {
		meta[i] = c.FieldMeta
	}
	return meta, nil
}

// EvalRow computes the metrics row of the last evaluation. ok is false in
// mode None or when nothing was evaluated. A statistic that cannot be
// computed is logged and left out of the row.
func (e *Evaluator) EvalRow(stratValue string, batch int) (MetricsRow, bool, error) {
	if e.train == nil {
		return nil, false, illegalState(e.msgs.Get(messages.EvaluatorNotInitialized))
	}
	if e.mode == None || e.eval == nil || e.eval.NumInstances() == 0 {
		return nil, false, nil
	}
	cols := e.columns(e.train.ClassAttribute(), stratValue != "", stratValue, batch)
	row := make(MetricsRow, 0, len(cols))
	for _, c := range cols {
		v, err := c.value(e.eval)
		if err != nil {
			e.log.LogBasic(e.msgs.Get(messages.UnableToComputeField, c.Name, err))
			continue
		}
		row = append(row, Field{Name: c.Name, Value: v})
	}
	return row, true, nil
}
