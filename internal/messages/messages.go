// Package messages resolves user-facing text from a keyed catalog. The
// default catalog is embedded; a user bundle can override any key.
package messages

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/magiconair/properties"
)

const (
	EvaluatorNotInitialized             = "Evaluator.Error.EvaluatorNotInitialized"
	EvaluationWasNotPerformed           = "Evaluator.Error.EvaluationWasNotPerformed"
	FinalClassifierHasNotBeenTrainedYet = "Evaluator.Error.FinalClassifierHasNotBeenTrainedYet"
	IncrementalEvalOnlyOnTestOrTraining = "Evaluator.Error.IncrementalEvalOnlyOnTestOrTrainingData"
	ModelNotUpdateable                  = "Evaluator.Error.ModelNotUpdateable"
	UnableToPerformPercentageSplit      = "Evaluator.Message.UnableToPerformPercentageSplit"
	UnableToPerformCrossValidation      = "Evaluator.Message.UnableToPerformCrossValidation"
	UnableToPerformSeparateTestSetEval  = "Evaluator.Message.UnableToPerformSeparateTestSetEval"
	PerformingPercentageSplit           = "Evaluator.Message.PerformingPercentageSplit"
	PerformingCrossValidation           = "Evaluator.Message.PerformingCrossValidation"
	PerformingSeparateTestSet           = "Evaluator.Message.PerformingSeparateTestSet"
	PerformingPrequential               = "Evaluator.Message.PerformingPrequential"
	TrainingModelForFold                = "Evaluator.Message.TrainingModelForFold"
	TestingModelForFold                 = "Evaluator.Message.TestingModelForFold"
	BuildingFinalModel                  = "Evaluator.Info.BuildingFinalModel"
	UnableToComputeField                = "Evaluator.Warning.UnableToComputeField"

	StringAttributesWarning = "Scheme.Warning.StringAttributes"
	NoClassAttribute        = "Scheme.Error.NoClassAttribute"
	CannotHandleData        = "Scheme.Error.CannotHandleData"
	MultinomialNominal      = "Scheme.Error.MultinomialNominal"

	PythonUnavailable = "Engine.Error.PythonUnavailable"
	DockerUnavailable = "Engine.Error.DockerUnavailable"
	DockerImageNotSet = "Engine.Error.DockerImageNotSet"
)

//go:embed messages.properties
var defaultBundle string

// Catalog maps message keys to text with {0}, {1}... placeholders.
type Catalog interface {
	Get(key string, params ...interface{}) string
}

type bundle struct {
	p *properties.Properties
}

// Default returns the embedded catalog.
func Default() Catalog {
	p := properties.MustLoadString(defaultBundle)
	p.DisableExpansion = true
	return &bundle{p: p}
}

// Load returns the embedded catalog overridden by the bundle at path.
func Load(path string) (Catalog, error) {
	base := properties.MustLoadString(defaultBundle)
	user, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("loading messages %s: %w", path, err)
	}
	base.Merge(user)
	base.DisableExpansion = true
	return &bundle{p: base}, nil
}

func (b *bundle) Get(key string, params ...interface{}) string {
	text, ok := b.p.Get(key)
	if !ok {
		return key
	}
	return Format(text, params...)
}

// Format substitutes {i} with the i-th parameter.
func Format(text string, params ...interface{}) string {
	if len(params) == 0 {
		return text
	}
	pairs := make([]string, 0, 2*len(params))
	for i, p := range params {
		pairs = append(pairs, fmt.Sprintf("{%d}", i), fmt.Sprint(p))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// OrDefault returns c, or the embedded catalog when c is nil.
func OrDefault(c Catalog) Catalog {
	if c == nil {
		return Default()
	}
	return c
}
