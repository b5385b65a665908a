// Package evaluator runs a model template through an evaluation mode and
// accumulates the resulting statistics.
//
// An Evaluator is single-threaded: folds run sequentially and calls into
// models block until they return. Callers evaluating in parallel use one
// Evaluator per goroutine.
package evaluator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/mlog"
	"github.com/signalnine/crucible/internal/model"
	"github.com/signalnine/crucible/internal/vars"
)

type Opts struct {
	Mode     Mode
	Config   Config
	Messages messages.Catalog
	Logger   mlog.Logger
	// Variables are passed to models that accept them. Nil leaves model
	// defaults untouched.
	Variables vars.Resolver
}

type Evaluator struct {
	mode Mode
	cfg  Config
	msgs messages.Catalog
	log  mlog.Logger
	vars map[string]string

	train     *data.Dataset
	template  model.Model
	efficient bool
	final     model.Model
	eval      *Evaluation
	performed bool
}

func New(opts *Opts) *Evaluator {
	return &Evaluator{
		mode: opts.Mode,
		cfg:  opts.Config,
		msgs: messages.OrDefault(opts.Messages),
		log:  mlog.OrNop(opts.Logger),
		vars: vars.Resolve(opts.Variables),
	}
}

func (e *Evaluator) Mode() Mode { return e.mode }

func (e *Evaluator) Config() Config { return e.cfg }

// Initialize takes a private copy of train and the untrained template that
// every fold copies.
func (e *Evaluator) Initialize(train *data.Dataset, template model.Model) error {
	if train == nil || template == nil {
		return illegalState("training data and a model template are required")
	}
	ev, err := NewEvaluation(train)
	if err != nil {
		return err
	}
	e.train = train.Copy()
	e.template = template
	e.efficient = model.EfficientBatch(template)
	e.eval = ev
	e.final = nil
	e.performed = false
	return nil
}

// InitializeNoPriors prepares to evaluate an already trained model when
// only the training header is known.
func (e *Evaluator) InitializeNoPriors(header *data.Dataset, trained model.Model) error {
	if header == nil || trained == nil {
		return illegalState("training header and a trained model are required")
	}
	ev, err := NewEvaluation(header.Header())
	if err != nil {
		return err
	}
	ev.UseNoPriors()
	template, err := trained.FreshCopy()
	if err != nil {
		return fmt.Errorf("copying %s: %w", trained.Name(), err)
	}
	e.train = header.Header()
	e.template = template
	e.efficient = model.EfficientBatch(template)
	e.eval = ev
	e.final = trained
	e.performed = false
	return nil
}

func (e *Evaluator) Template() model.Model { return e.template }

func (e *Evaluator) TrainingData() *data.Dataset { return e.train }

func (e *Evaluator) FinalModel() model.Model { return e.final }

// SetTrainedModel supplies the final model evaluated on a separate test set.
func (e *Evaluator) SetTrainedModel(m model.Model) { e.final = m }

// SetEvaluation replaces the accumulator, for instance one carrying the
// priors of the data a loaded model was trained on.
func (e *Evaluator) SetEvaluation(ev *Evaluation) { e.eval = ev }

func (e *Evaluator) WasEvaluationPerformed() bool { return e.performed }

// Evaluation returns the accumulator of a performed evaluation.
func (e *Evaluator) Evaluation() (*Evaluation, error) {
	if e.train == nil {
		return nil, illegalState(e.msgs.Get(messages.EvaluatorNotInitialized))
	}
	if !e.performed {
		return nil, illegalState(e.msgs.Get(messages.EvaluationWasNotPerformed))
	}
	return e.eval, nil
}

// freshModel copies the template and hands it the logger and variables.
func (e *Evaluator) freshModel() (model.Model, error) {
	m, err := e.template.FreshCopy()
	if err != nil {
		return nil, fmt.Errorf("copying %s: %w", e.template.Name(), err)
	}
	e.prepare(m)
	return m, nil
}

func (e *Evaluator) prepare(m model.Model) {
	if lh, ok := m.(model.LogHandler); ok {
		lh.SetLogger(e.log)
	}
	if eh, ok := m.(model.EnvironmentHandler); ok && e.vars != nil {
		eh.SetVariables(e.vars)
	}
}

// BuildFinalModel fits a fresh copy of the template on all training data.
func (e *Evaluator) BuildFinalModel() (model.Model, error) {
	if e.train == nil {
		return nil, illegalState(e.msgs.Get(messages.EvaluatorNotInitialized))
	}
	m, err := e.freshModel()
	if err != nil {
		return nil, err
	}
	e.log.LogBasic(e.msgs.Get(messages.BuildingFinalModel) + " " + m.Name() + " " + model.JoinOptions(m.Options()))
	if err := m.Fit(e.train); err != nil {
		return nil, fmt.Errorf("building final model: %w", err)
	}
	e.final = m
	return m, nil
}

// PerformEvaluation runs the configured mode. Each run starts from empty
// statistics, so a repeated call reports only its own predictions. Too
// little data is not an error: the reason is logged and
// WasEvaluationPerformed stays false. separateTest is only read in
// SeparateTestSet mode.
func (e *Evaluator) PerformEvaluation(separateTest *data.Dataset) error {
	if e.train == nil {
		return illegalState(e.msgs.Get(messages.EvaluatorNotInitialized))
	}
	e.performed = false
	e.eval.Reset()
	r := rand.New(rand.NewSource(e.cfg.Seed))
	if !e.cfg.PreserveOrder && (e.mode == PercentageSplit || e.mode == CrossValidation) {
		e.train.Randomize(r)
	}
	switch e.mode {
	case PercentageSplit:
		return e.percentageSplit()
	case CrossValidation:
		return e.crossValidation(r)
	case SeparateTestSet:
		return e.separateTestSet(separateTest)
	case Prequential:
		return e.prequential()
	}
	return nil
}

func (e *Evaluator) percentageSplit() error {
	n := e.train.Len()
	if n < 10 {
		e.log.LogBasic(e.msgs.Get(messages.UnableToPerformPercentageSplit))
		return nil
	}
	e.log.LogBasic(e.msgs.Get(messages.PerformingPercentageSplit, e.cfg.PercentageSplit))
	trainSize := int(math.Round(float64(n) * float64(e.cfg.PercentageSplit) / 100))
	train := e.train.Subset(0, trainSize)
	test := e.train.Subset(trainSize, n-trainSize)
	m, err := e.freshModel()
	if err != nil {
		return err
	}
	if err := m.Fit(train); err != nil {
		return fmt.Errorf("training on %d rows: %w", train.Len(), err)
	}
	if err := e.evaluate(m, test); err != nil {
		return err
	}
	e.performed = true
	return nil
}

func (e *Evaluator) crossValidation(r *rand.Rand) error {
	folds, n := e.cfg.Folds, e.train.Len()
	if n < folds {
		e.log.LogBasic(e.msgs.Get(messages.UnableToPerformCrossValidation, folds, n))
		return nil
	}
	e.log.LogBasic(e.msgs.Get(messages.PerformingCrossValidation, folds))
	if !e.cfg.PreserveOrder && e.train.NominalClass() {
		e.train.Stratify(folds)
	}
	for i := 0; i < folds; i++ {
		e.log.LogDetailed(e.msgs.Get(messages.TrainingModelForFold, i+1))
		train := e.train.TrainCV(folds, i, r)
		e.eval.SetPriors(train)
		m, err := e.freshModel()
		if err != nil {
			return err
		}
		if err := m.Fit(train); err != nil {
			return fmt.Errorf("fold %d: training: %w", i+1, err)
		}
		e.log.LogDetailed(e.msgs.Get(messages.TestingModelForFold, i+1))
		if err := e.evaluate(m, e.train.TestCV(folds, i)); err != nil {
			return fmt.Errorf("fold %d: %w", i+1, err)
		}
	}
	e.performed = true
	return nil
}

func (e *Evaluator) separateTestSet(test *data.Dataset) error {
	if test == nil || test.Len() == 0 {
		e.log.LogBasic(e.msgs.Get(messages.UnableToPerformSeparateTestSetEval))
		return nil
	}
	if e.final == nil {
		return illegalState(e.msgs.Get(messages.FinalClassifierHasNotBeenTrainedYet))
	}
	if err := e.train.CheckCompatible(test); err != nil {
		return fmt.Errorf("test set does not match training data: %w", err)
	}
	e.log.LogBasic(e.msgs.Get(messages.PerformingSeparateTestSet, test.Len()))
	e.prepare(e.final)
	if err := e.evaluate(e.final, test); err != nil {
		return err
	}
	e.performed = true
	return nil
}

// prequential tests each training row on a model fitted to the rows before
// it, then updates the model with the row.
func (e *Evaluator) prequential() error {
	if e.efficient {
		return unsupported(e.msgs.Get(messages.IncrementalEvalOnlyOnTestOrTraining))
	}
	m, err := e.freshModel()
	if err != nil {
		return err
	}
	um, ok := m.(model.Updateable)
	if !ok {
		return unsupported(e.msgs.Get(messages.ModelNotUpdateable))
	}
	e.log.LogBasic(e.msgs.Get(messages.PerformingPrequential, e.train.Len()))
	if err := um.Fit(e.train.Header()); err != nil {
		return fmt.Errorf("prequential: initial fit: %w", err)
	}
	for i, row := range e.train.Rows {
		if err := e.evaluateRow(um, row); err != nil {
			return fmt.Errorf("prequential: row %d: %w", i, err)
		}
		if err := um.Update(row); err != nil {
			return fmt.Errorf("prequential: row %d: update: %w", i, err)
		}
	}
	e.final = um
	e.performed = true
	return nil
}

// PerformEvaluationIncremental scores one row against the final model. In
// Prequential mode an updateable final model then learns the row.
func (e *Evaluator) PerformEvaluationIncremental(row data.Row) error {
	if e.train == nil {
		return illegalState(e.msgs.Get(messages.EvaluatorNotInitialized))
	}
	if e.mode != SeparateTestSet && e.mode != Prequential {
		return illegalState(e.msgs.Get(messages.IncrementalEvalOnlyOnTestOrTraining))
	}
	if e.efficient {
		return unsupported(e.msgs.Get(messages.IncrementalEvalOnlyOnTestOrTraining))
	}
	if e.final == nil {
		return illegalState(e.msgs.Get(messages.FinalClassifierHasNotBeenTrainedYet))
	}
	if len(row) != e.train.NumAttributes() {
		return fmt.Errorf("row has %d values, training data has %d attributes", len(row), e.train.NumAttributes())
	}
	if err := e.evaluateRow(e.final, row); err != nil {
		return err
	}
	if um, ok := e.final.(model.Updateable); ok && e.mode == Prequential {
		if err := um.Update(row); err != nil {
			return fmt.Errorf("updating %s: %w", um.Name(), err)
		}
	}
	e.performed = true
	return nil
}

func (e *Evaluator) evaluateRow(m model.Model, row data.Row) error {
	pred, err := m.Predict(row)
	if err != nil {
		return fmt.Errorf("predicting with %s: %w", m.Name(), err)
	}
	return e.eval.Add(pred, row, e.train.ClassIndex, e.cfg.ComputeAUC)
}

// evaluate scores m on test, whose header matches the training data.
// Only templates that prefer batches predict the whole test set in one
// call with the targets cleared. Everything else is predicted row by row,
// and ComputeAUC does not change the path. Predictions are kept for curve
// statistics on either path when ComputeAUC is set.
func (e *Evaluator) evaluate(m model.Model, test *data.Dataset) error {
	bp, ok := m.(model.BatchPredictor)
	if !ok || !e.efficient {
		for _, row := range test.Rows {
			if err := e.evaluateRow(m, row); err != nil {
				return err
			}
		}
		return nil
	}
	unlabelled := test.Copy()
	unlabelled.ClearClass()
	preds, err := bp.PredictBatch(unlabelled)
	if err != nil {
		return fmt.Errorf("batch predicting with %s: %w", m.Name(), err)
	}
	if len(preds) != test.Len() {
		return fmt.Errorf("%s returned %d predictions for %d rows", m.Name(), len(preds), test.Len())
	}
	for i, row := range test.Rows {
		if err := e.eval.Add(preds[i], row, e.train.ClassIndex, e.cfg.ComputeAUC); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
