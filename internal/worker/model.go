package worker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

var regressors = map[string]bool{
	"LinearRegression":      true,
	"DecisionTreeRegressor": true,
	"SVR":                   true,
	"RandomForestRegressor": true,
	"MLPRegressor":          true,
	"XGBRegressor":          true,
}

// IsRegressor reports whether learner predicts a numeric target.
func IsRegressor(learner string) bool { return regressors[learner] }

// Model is a scikit-learn learner fitted and queried through a Backend.
// Fitted state lives in a file in the backend's scratch directory.
type Model struct {
	backend   Backend
	learner   string
	params    string
	modelFile string
	header    *data.Dataset
	vars      map[string]string
}

// NewModel returns an unfitted learner. params is a keyword argument list
// such as "C=1.0, kernel='rbf'".
func NewModel(b Backend, learner, params string) *Model {
	return &Model{backend: b, learner: learner, params: params}
}

func (m *Model) Name() string { return m.learner }

func (m *Model) Learner() string { return m.learner }

func (m *Model) Params() string { return m.params }

func (m *Model) Fit(train *data.Dataset) error {
	if err := m.CheckData(train); err != nil {
		return err
	}
	file := "model-" + uuid.NewString() + ".pkl"
	_, err := m.backend.Run(&Request{
		Op:        "fit",
		Learner:   m.learner,
		Params:    m.params,
		ModelPath: file,
		Data:      encodeDataset(train),
	}, m.vars)
	if err != nil {
		return fmt.Errorf("%s: fit: %w", m.learner, err)
	}
	m.modelFile = file
	m.header = train.Header()
	return nil
}

func (m *Model) Predict(r data.Row) ([]float64, error) {
	if m.header == nil {
		return nil, fmt.Errorf("%s: model not trained", m.learner)
	}
	d := m.header.Header()
	d.Rows = []data.Row{r}
	preds, err := m.PredictBatch(d)
	if err != nil {
		return nil, err
	}
	return preds[0], nil
}

func (m *Model) EfficientBatchPrediction() bool { return true }

func (m *Model) PredictBatch(rows *data.Dataset) ([][]float64, error) {
	if m.modelFile == "" {
		return nil, fmt.Errorf("%s: model not trained", m.learner)
	}
	resp, err := m.backend.Run(&Request{
		Op:        "predict",
		ModelPath: m.modelFile,
		Data:      encodeDataset(rows),
	}, m.vars)
	if err != nil {
		return nil, fmt.Errorf("%s: predict: %w", m.learner, err)
	}
	if len(resp.Predictions) != len(rows.Rows) {
		return nil, fmt.Errorf("%s: got %d predictions for %d rows", m.learner, len(resp.Predictions), len(rows.Rows))
	}
	return resp.Predictions, nil
}

// Options renders as -learner <name> [-params <kwargs>].
func (m *Model) Options() []string {
	opts := []string{"-learner", m.learner}
	if m.params != "" {
		opts = append(opts, "-params", m.params)
	}
	return opts
}

func (m *Model) SetOptions(opts []string) error {
	for i := 0; i < len(opts); i++ {
		if i+1 >= len(opts) {
			return fmt.Errorf("%s: option %s needs a value", m.learner, opts[i])
		}
		switch opts[i] {
		case "-learner":
			if opts[i+1] != m.learner {
				return fmt.Errorf("cannot change learner %s to %s", m.learner, opts[i+1])
			}
		case "-params":
			m.params = strings.TrimSpace(opts[i+1])
		default:
			return fmt.Errorf("%s: unknown option %q", m.learner, opts[i])
		}
		i++
	}
	return nil
}

func (m *Model) FreshCopy() (model.Model, error) {
	c := NewModel(m.backend, m.learner, m.params)
	c.vars = m.vars
	return c, nil
}

func (m *Model) SetVariables(vars map[string]string) { m.vars = vars }

func (m *Model) CheckData(header *data.Dataset) error {
	caps := model.Capabilities{
		NumericAttributes: true,
		NominalAttributes: m.learner != "MultinomialNB",
		MissingValues:     true,
		NominalClass:      !IsRegressor(m.learner),
		NumericClass:      IsRegressor(m.learner),
	}
	return caps.Test(header)
}
