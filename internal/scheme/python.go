package scheme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/filter"
	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/model"
	"github.com/signalnine/crucible/internal/worker"
)

var pythonLearners = map[string]string{
	"Logistic regression":                  "LogisticRegression",
	"Naive Bayes":                          "BernoulliNB",
	"Naive Bayes multinomial":              "MultinomialNB",
	"Decision tree classifier":             "DecisionTreeClassifier",
	"Decision tree regressor":              "DecisionTreeRegressor",
	"Linear regression":                    "LinearRegression",
	"Support vector classifier":            "SVC",
	"Support vector regressor":             "SVR",
	"Random forest classifier":             "RandomForestClassifier",
	"Random forest regressor":              "RandomForestRegressor",
	"Gradient boosted trees":               "GradientBoostingClassifier",
	"Multi-layer perceptron classifier":    "MLPClassifier",
	"Multi-layer perceptron regressor":     "MLPRegressor",
	"Nearest neighbours":                   "KNeighborsClassifier",
	"Baseline predictor":                   "DummyClassifier",
	"Extreme gradient boosting classifier": "XGBClassifier",
	"Extreme gradient boosting regressor":  "XGBRegressor",
}

// learnerDefaults are the scikit-learn defaults reported by Info.
var learnerDefaults = map[string]string{
	"LogisticRegression":         "penalty='l2', C=1.0, max_iter=100",
	"BernoulliNB":                "alpha=1.0, binarize=0.0",
	"GaussianNB":                 "var_smoothing=1e-09",
	"MultinomialNB":              "alpha=1.0",
	"DecisionTreeClassifier":     "criterion='gini', max_depth=None, min_samples_split=2",
	"DecisionTreeRegressor":      "criterion='squared_error', max_depth=None, min_samples_split=2",
	"LinearRegression":           "fit_intercept=True",
	"SVC":                        "C=1.0, kernel='rbf', gamma='scale'",
	"SVR":                        "C=1.0, kernel='rbf', gamma='scale', epsilon=0.1",
	"RandomForestClassifier":     "n_estimators=100, max_depth=None",
	"RandomForestRegressor":      "n_estimators=100, max_depth=None",
	"GradientBoostingClassifier": "n_estimators=100, learning_rate=0.1, max_depth=3",
	"MLPClassifier":              "hidden_layer_sizes=(100,), activation='relu', max_iter=200",
	"MLPRegressor":               "hidden_layer_sizes=(100,), activation='relu', max_iter=200",
	"KNeighborsClassifier":       "n_neighbors=5, weights='uniform'",
	"DummyClassifier":            "strategy='prior'",
	"XGBClassifier":              "n_estimators=100, max_depth=6, learning_rate=0.3",
	"XGBRegressor":               "n_estimators=100, max_depth=6, learning_rate=0.3",
}

const (
	ParamPythonCommand = "pythonCommand"
	ParamPythonPath    = "pythonPath"
	ParamServerID      = "serverID"
)

// PythonNames lists the schemes with a scikit-learn learner.
func PythonNames() []string {
	names := make([]string, 0, len(pythonLearners))
	for n := range pythonLearners {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Python is a scheme backed by a scikit-learn learner running in a worker.
type Python struct {
	Base
	backend worker.Backend
	proto   *worker.Model
}

func NewPython(name string, b worker.Backend) (*Python, error) {
	l, ok := pythonLearners[name]
	if !ok {
		return nil, fmt.Errorf("no scikit-learn learner for %q", name)
	}
	return &Python{Base: NewBase(name), backend: b, proto: worker.NewModel(b, l, "")}, nil
}

func (s *Python) Flags() Flags { return Flags{EnvironmentVariables: true} }

func (s *Python) Learner() string { return s.proto.Learner() }

func (s *Python) Options() []string { return s.proto.Options() }

// learnerFamilies groups learners a scheme may switch between with
// -learner.
var learnerFamilies = map[string]string{
	"BernoulliNB": "naive bayes",
	"GaussianNB":  "naive bayes",
}

// SetOptions applies -learner and -params. -learner may only name a
// learner of the same family as the current one, keeping its params
// unless -params follows. Nothing changes when an option is rejected.
func (s *Python) SetOptions(opts []string) error {
	next := s.proto
	for i := 0; i+1 < len(opts); i += 2 {
		l := opts[i+1]
		if opts[i] != "-learner" || l == next.Learner() {
			continue
		}
		if f, ok := learnerFamilies[l]; !ok || f != learnerFamilies[next.Learner()] {
			return fmt.Errorf("scheme %s: cannot change learner %s to %s", s.Name(), next.Learner(), l)
		}
		next = worker.NewModel(s.backend, l, next.Params())
	}
	if next == s.proto {
		next = worker.NewModel(s.backend, s.proto.Learner(), s.proto.Params())
	}
	if err := next.SetOptions(opts); err != nil {
		return err
	}
	s.proto = next
	return nil
}

// ConfiguredModel picks the naive Bayes variant that suits the data.
// Bernoulli NB gets a discretizer when numeric and nominal attributes are
// mixed, and becomes Gaussian NB (with default settings) when every
// attribute is numeric. Gaussian NB with nominal attributes becomes
// Bernoulli NB keeping its settings, discretized if numerics remain.
func (s *Python) ConfiguredModel(header *data.Dataset) (model.Model, error) {
	m, err := s.proto.FreshCopy()
	if err != nil {
		return nil, err
	}
	final, err := s.Adjust(m)
	if err != nil {
		return nil, err
	}
	numeric := header.HasKind(data.Numeric, true)
	nominal := header.HasKind(data.Nominal, true)
	switch s.proto.Learner() {
	case "BernoulliNB":
		if filter.Contains(final, "Discretize") {
			break
		}
		if numeric && nominal {
			final = nestDiscretize(final)
		} else if numeric {
			final, err = s.Adjust(worker.NewModel(s.backend, "GaussianNB", ""))
		}
	case "GaussianNB":
		if !nominal {
			break
		}
		final, err = s.Adjust(worker.NewModel(s.backend, "BernoulliNB", s.proto.Params()))
		if err == nil && numeric && !filter.Contains(final, "Discretize") {
			final = nestDiscretize(final)
		}
	}
	return final, err
}

// nestDiscretize puts a discretizer directly around the learner, inside
// any filters already applied.
func nestDiscretize(m model.Model) model.Model {
	fm, ok := m.(*filter.FilteredModel)
	if !ok {
		return filter.NewFilteredModel(filter.NewDiscretize(), m)
	}
	inner := fm
	for {
		next, ok := inner.Base.(*filter.FilteredModel)
		if !ok {
			break
		}
		inner = next
	}
	inner.Base = filter.NewFilteredModel(filter.NewDiscretize(), inner.Base)
	return fm
}

func (s *Python) SetConfiguredModel(m model.Model) error {
	wm, ok := filter.Unwrap(m).(*worker.Model)
	if !ok {
		return fmt.Errorf("scheme %s expects a scikit-learn model, got %s", s.Name(), filter.Unwrap(m).Name())
	}
	return s.SetOptions(wm.Options())
}

func (s *Python) CanHandleData(ds *data.Dataset) (bool, []string) {
	if s.proto.Learner() == "MultinomialNB" && ds.HasKind(data.Nominal, true) {
		return false, []string{s.msgs.Get(messages.MultinomialNominal)}
	}
	return s.check(s, ds)
}

type commandSettings interface {
	Settings() (command, path, serverID string)
}

func (s *Python) Info() (*Info, error) {
	defaults, err := parseKwargs(learnerDefaults[s.proto.Learner()])
	if err != nil {
		return nil, err
	}
	user, err := parseKwargs(s.proto.Params())
	if err != nil {
		return nil, err
	}
	info := &Info{Scheme: s.Name(), Model: s.proto.Learner()}
	seen := make(map[string]bool)
	for _, kv := range defaults {
		v := kv.value
		if u, ok := lookup(user, kv.key); ok {
			v = u
		}
		seen[kv.key] = true
		info.Parameters = append(info.Parameters, Parameter{Name: kv.key, Type: "python", Value: v, Tip: "default " + kv.value, Backend: true})
	}
	for _, kv := range user {
		if !seen[kv.key] {
			info.Parameters = append(info.Parameters, Parameter{Name: kv.key, Type: "python", Value: kv.value, Backend: true})
		}
	}
	if cs, ok := s.backend.(commandSettings); ok {
		command, path, serverID := cs.Settings()
		info.Parameters = append(info.Parameters,
			Parameter{Name: ParamPythonCommand, Label: "Python interpreter", Type: "string", Value: command},
			Parameter{Name: ParamPythonPath, Label: "Directories prepended to PATH", Type: "string", Value: path},
			Parameter{Name: ParamServerID, Label: "Worker server id", Type: "string", Value: serverID},
		)
	}
	return info, nil
}

// SetParameters updates learner keyword arguments. Values equal to the
// learner default are dropped. Interpreter settings go to the backend and
// fail with worker.ErrNotSupported when it has none.
func (s *Python) SetParameters(params map[string]string) error {
	command, hasCommand := params[ParamPythonCommand]
	path, hasPath := params[ParamPythonPath]
	serverID, hasServer := params[ParamServerID]
	if hasCommand || hasPath || hasServer {
		if err := worker.Configure(s.backend, command, path, serverID); err != nil {
			return fmt.Errorf("scheme %s: interpreter settings: %w", s.Name(), err)
		}
	}

	defaults, err := parseKwargs(learnerDefaults[s.proto.Learner()])
	if err != nil {
		return err
	}
	user, err := parseKwargs(s.proto.Params())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == ParamPythonCommand || k == ParamPythonPath || k == ParamServerID {
			continue
		}
		v := strings.TrimSpace(params[k])
		if d, ok := lookup(defaults, k); (ok && d == v) || v == "" {
			user = remove(user, k)
			continue
		}
		user = set(user, k, v)
	}
	return s.proto.SetOptions([]string{"-params", renderKwargs(user)})
}

type kwarg struct {
	key, value string
}

// parseKwargs splits "a=1, b='x,y', c=(1, 2)" into ordered pairs.
func parseKwargs(s string) ([]kwarg, error) {
	var (
		out   []kwarg
		depth int
		quote byte
		start int
	)
	flush := func(end int) error {
		part := strings.TrimSpace(s[start:end])
		start = end + 1
		if part == "" {
			return nil
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("malformed parameter %q", part)
		}
		out = append(out, kwarg{key: strings.TrimSpace(k), value: strings.TrimSpace(v)})
		return nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			if err := flush(i); err != nil {
				return nil, err
			}
		}
	}
	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("unbalanced parameters %q", s)
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return out, nil
}

func renderKwargs(kws []kwarg) string {
	parts := make([]string, len(kws))
	for i, kv := range kws {
		parts[i] = kv.key + "=" + kv.value
	}
	return strings.Join(parts, ", ")
}

func lookup(kws []kwarg, key string) (string, bool) {
	for _, kv := range kws {
		if kv.key == key {
			return kv.value, true
		}
	}
	return "", false
}

func set(kws []kwarg, key, value string) []kwarg {
	for i := range kws {
		if kws[i].key == key {
			kws[i].value = value
			return kws
		}
	}
	return append(kws, kwarg{key: key, value: value})
}

func remove(kws []kwarg, key string) []kwarg {
	for i := range kws {
		if kws[i].key == key {
			return append(kws[:i], kws[i+1:]...)
		}
	}
	return kws
}
