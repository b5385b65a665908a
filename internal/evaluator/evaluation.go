package evaluator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/model"
)

// eps bounds the rounding error of a variance computed from running sums.
const eps = 1e-12

type prediction struct {
	actual float64
	dist   []float64
}

// Evaluation accumulates prediction statistics against known targets.
// For nominal targets predictions are class distributions, for numeric
// targets a single value.
type Evaluation struct {
	class    data.Attribute
	nominal  bool
	k        int
	noPriors bool

	priors   []float64
	priorSum float64

	withClass    float64
	unclassified float64
	correct      float64
	incorrect    float64
	missingClass float64

	sumAbsErr, sumSqrErr           float64
	sumPriorAbsErr, sumPriorSqrErr float64
	confusion                      [][]float64

	sumClass, sumSqrClass         float64
	sumPredicted, sumSqrPredicted float64
	sumClassPredicted             float64

	predictions []prediction
}

// NewEvaluation starts an accumulator with priors taken from train.
func NewEvaluation(train *data.Dataset) (*Evaluation, error) {
	class := train.ClassAttribute()
	if class == nil {
		return nil, errors.New("evaluation needs a class attribute")
	}
	e := &Evaluation{
		class:   *class,
		nominal: class.Kind == data.Nominal,
		k:       train.NumClasses(),
	}
	e.confusion = make([][]float64, e.k)
	for i := range e.confusion {
		e.confusion[i] = make([]float64, e.k)
	}
	e.SetPriors(train)
	return e, nil
}

// SetPriors resets the prior distribution to that of train. Nominal priors
// are Laplace-smoothed counts, the numeric prior is the training mean.
func (e *Evaluation) SetPriors(train *data.Dataset) {
	e.priors = make([]float64, e.k)
	e.priorSum = 0
	if e.nominal {
		for i, c := range train.ClassCounts() {
			e.priors[i] = c + 1
			e.priorSum += c + 1
		}
		return
	}
	for _, r := range train.Rows {
		if v := r[train.ClassIndex]; !data.IsMissing(v) {
			e.priors[0] += v
			e.priorSum++
		}
	}
}

// UseNoPriors marks the priors unknown. Relative errors become
// unavailable; prior errors are still tracked against a uniform
// distribution or a zero mean.
func (e *Evaluation) UseNoPriors() {
	e.noPriors = true
	for i := range e.priors {
		e.priors[i] = 1
	}
	e.priorSum = float64(e.k)
	if !e.nominal {
		e.priors[0] = 0
	}
}

// Reset clears the accumulated statistics. Priors and the no-priors flag
// are kept.
func (e *Evaluation) Reset() {
	e.withClass, e.unclassified, e.correct, e.incorrect, e.missingClass = 0, 0, 0, 0, 0
	e.sumAbsErr, e.sumSqrErr, e.sumPriorAbsErr, e.sumPriorSqrErr = 0, 0, 0, 0
	e.sumClass, e.sumSqrClass, e.sumPredicted, e.sumSqrPredicted, e.sumClassPredicted = 0, 0, 0, 0, 0
	for _, row := range e.confusion {
		clear(row)
	}
	e.predictions = nil
}

func (e *Evaluation) priorDistribution() []float64 {
	dist := make([]float64, e.k)
	if e.priorSum == 0 {
		return dist
	}
	for i, p := range e.priors {
		dist[i] = p / e.priorSum
	}
	return dist
}

// Add scores pred against the target of row, optionally keeping the
// prediction for curve statistics. A nominal target outside the class
// values is an error and leaves the statistics unchanged.
func (e *Evaluation) Add(pred []float64, row data.Row, classIndex int, record bool) error {
	if classIndex < 0 || classIndex >= len(row) {
		return fmt.Errorf("class index %d out of range for a row of %d values", classIndex, len(row))
	}
	actual := row[classIndex]
	if data.IsMissing(actual) {
		e.missingClass++
		return nil
	}
	if e.nominal && (actual < 0 || int(actual) >= e.k || actual != math.Trunc(actual)) {
		return fmt.Errorf("class value %v is not one of the %d class labels", actual, e.k)
	}
	if record {
		e.predictions = append(e.predictions, prediction{actual: actual, dist: append([]float64(nil), pred...)})
	}
	if e.nominal {
		e.addNominal(pred, int(actual))
		return nil
	}
	e.addNumeric(pred, actual)
	return nil
}

func (e *Evaluation) addNominal(dist []float64, actual int) {
	e.withClass++
	predicted := -1
	if !model.Unclassified(dist, true) && len(dist) == e.k {
		predicted = model.MaxIndex(dist)
	}
	if predicted < 0 {
		e.unclassified++
		return
	}
	target := make([]float64, e.k)
	target[actual] = 1
	e.updateErrors(dist, target)
	e.confusion[actual][predicted]++
	if predicted == actual {
		e.correct++
	} else {
		e.incorrect++
	}
}

func (e *Evaluation) addNumeric(pred []float64, actual float64) {
	e.withClass++
	if model.Unclassified(pred, false) {
		e.unclassified++
		return
	}
	p := pred[0]
	e.sumClass += actual
	e.sumSqrClass += actual * actual
	e.sumPredicted += p
	e.sumSqrPredicted += p * p
	e.sumClassPredicted += actual * p
	e.updateErrors([]float64{p}, []float64{actual})
}

func (e *Evaluation) updateErrors(pred, target []float64) {
	prior := e.priorDistribution()
	if !e.nominal {
		prior[0] = e.priorMean()
	}
	var abs, sqr, pabs, psqr float64
	for i := range target {
		d := pred[i] - target[i]
		abs += math.Abs(d)
		sqr += d * d
		d = prior[i] - target[i]
		pabs += math.Abs(d)
		psqr += d * d
	}
	k := float64(len(target))
	e.sumAbsErr += abs / k
	e.sumSqrErr += sqr / k
	e.sumPriorAbsErr += pabs / k
	e.sumPriorSqrErr += psqr / k
}

func (e *Evaluation) priorMean() float64 {
	if e.priorSum == 0 {
		return 0
	}
	return e.priors[0] / e.priorSum
}

func (e *Evaluation) classified() float64 { return e.withClass - e.unclassified }

func (e *Evaluation) NumInstances() float64 { return e.withClass }
func (e *Evaluation) Unclassified() float64 { return e.unclassified }
func (e *Evaluation) Correct() float64      { return e.correct }
func (e *Evaluation) Incorrect() float64    { return e.incorrect }
func (e *Evaluation) Nominal() bool         { return e.nominal }

func (e *Evaluation) PctCorrect() float64 {
	if e.withClass == 0 {
		return math.NaN()
	}
	return 100 * e.correct / e.withClass
}

func (e *Evaluation) PctIncorrect() float64 {
	if e.withClass == 0 {
		return math.NaN()
	}
	return 100 * e.incorrect / e.withClass
}

func (e *Evaluation) MeanAbsoluteError() float64 {
	return e.sumAbsErr / e.classified()
}

func (e *Evaluation) RootMeanSquaredError() float64 {
	return math.Sqrt(e.sumSqrErr / e.classified())
}

func (e *Evaluation) RelativeAbsoluteError() (float64, error) {
	if e.noPriors {
		return 0, errors.New("no prior distribution")
	}
	prior := e.sumPriorAbsErr / e.classified()
	return 100 * e.MeanAbsoluteError() / prior, nil
}

func (e *Evaluation) RootRelativeSquaredError() (float64, error) {
	if e.noPriors {
		return 0, errors.New("no prior distribution")
	}
	prior := math.Sqrt(e.sumPriorSqrErr / e.classified())
	return 100 * e.RootMeanSquaredError() / prior, nil
}

// CorrelationCoefficient is the Pearson correlation between actual and
// predicted numeric targets.
func (e *Evaluation) CorrelationCoefficient() (float64, error) {
	if e.nominal {
		return 0, errors.New("class is nominal")
	}
	n := e.classified()
	varActual := e.sumSqrClass - e.sumClass*e.sumClass/n
	varPredicted := e.sumSqrPredicted - e.sumPredicted*e.sumPredicted/n
	if n == 0 || varActual <= eps*e.sumSqrClass || varPredicted <= eps*e.sumSqrPredicted {
		return 0, errors.New("zero variance")
	}
	cov := e.sumClassPredicted - e.sumClass*e.sumPredicted/n
	return cov / math.Sqrt(varActual*varPredicted), nil
}

// Kappa is Cohen's kappa over the confusion matrix.
func (e *Evaluation) Kappa() float64 {
	rows := make([]float64, e.k)
	cols := make([]float64, e.k)
	total := 0.0
	for i := range e.confusion {
		for j, v := range e.confusion[i] {
			rows[i] += v
			cols[j] += v
			total += v
		}
	}
	if total == 0 {
		return math.NaN()
	}
	var agree, chance float64
	for i := range e.confusion {
		agree += e.confusion[i][i]
		chance += rows[i] * cols[i]
	}
	agree /= total
	chance /= total * total
	if chance >= 1 {
		return 1
	}
	return (agree - chance) / (1 - chance)
}

// counts returns true positives, false positives, false negatives and
// true negatives for class c.
func (e *Evaluation) counts(c int) (tp, fp, fn, tn float64) {
	for i := range e.confusion {
		for j, v := range e.confusion[i] {
			switch {
			case i == c && j == c:
				tp += v
			case j == c:
				fp += v
			case i == c:
				fn += v
			default:
				tn += v
			}
		}
	}
	return tp, fp, fn, tn
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func (e *Evaluation) TruePositiveRate(c int) float64 {
	tp, _, fn, _ := e.counts(c)
	return ratio(tp, tp+fn)
}

func (e *Evaluation) FalsePositiveRate(c int) float64 {
	_, fp, _, tn := e.counts(c)
	return ratio(fp, fp+tn)
}

func (e *Evaluation) Precision(c int) float64 {
	tp, fp, _, _ := e.counts(c)
	return ratio(tp, tp+fp)
}

func (e *Evaluation) Recall(c int) float64 { return e.TruePositiveRate(c) }

func (e *Evaluation) FMeasure(c int) float64 {
	p, r := e.Precision(c), e.Recall(c)
	return ratio(2*p*r, p+r)
}

// MatthewsCorrelation is zero when any marginal is empty.
func (e *Evaluation) MatthewsCorrelation(c int) float64 {
	tp, fp, fn, tn := e.counts(c)
	den := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	return ratio(tp*tn-fp*fn, den)
}

// scores returns the predicted probability of class c and whether c was
// the actual class, for every recorded prediction.
func (e *Evaluation) scores(c int) ([]float64, []bool) {
	var ys []float64
	var pos []bool
	for _, p := range e.predictions {
		if len(p.dist) != e.k || model.Unclassified(p.dist, true) {
			continue
		}
		ys = append(ys, p.dist[c])
		pos = append(pos, int(p.actual) == c)
	}
	return ys, pos
}

func balanced(pos []bool) bool {
	var p, n bool
	for _, b := range pos {
		p = p || b
		n = n || !b
	}
	return p && n
}

// AreaUnderROC is NaN unless predictions were recorded and both outcomes
// occur for class c.
func (e *Evaluation) AreaUnderROC(c int) float64 {
	ys, pos := e.scores(c)
	if !balanced(pos) {
		return math.NaN()
	}
	stat.SortWeightedLabeled(ys, pos, nil)
	tpr, fpr, _ := stat.ROC(nil, ys, pos, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// AreaUnderPRC integrates precision over recall with the trapezoid rule,
// one point per distinct score.
func (e *Evaluation) AreaUnderPRC(c int) float64 {
	ys, pos := e.scores(c)
	if !balanced(pos) {
		return math.NaN()
	}
	idx := make([]int, len(ys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ys[idx[a]] > ys[idx[b]] })
	total := 0.0
	for _, p := range pos {
		if p {
			total++
		}
	}
	var tp, fp, area, prevRecall float64
	prevPrecision := -1.0
	for i := 0; i < len(idx); {
		score := ys[idx[i]]
		for ; i < len(idx) && ys[idx[i]] == score; i++ {
			if pos[idx[i]] {
				tp++
			} else {
				fp++
			}
		}
		recall, precision := tp/total, tp/(tp+fp)
		if prevPrecision < 0 {
			prevPrecision = precision
		}
		area += (recall - prevRecall) * (precision + prevPrecision) / 2
		prevRecall, prevPrecision = recall, precision
	}
	return area
}

// MatrixString renders the confusion matrix with letter labels.
func (e *Evaluation) MatrixString() (string, error) {
	if !e.nominal {
		return "", errors.New("class is numeric")
	}
	ids := make([]string, e.k)
	width := 1
	for i := range ids {
		ids[i] = shortID(i)
		width = max(width, len(ids[i]))
	}
	for _, row := range e.confusion {
		for _, v := range row {
			width = max(width, len(fmt.Sprintf("%.0f", v)))
		}
	}
	var b strings.Builder
	b.WriteString("=== Confusion Matrix ===\n\n")
	for _, id := range ids {
		fmt.Fprintf(&b, " %*s", width, id)
	}
	b.WriteString("   <-- classified as\n")
	for i, row := range e.confusion {
		for _, v := range row {
			fmt.Fprintf(&b, " %*.0f", width, v)
		}
		fmt.Fprintf(&b, " | %*s = %s\n", width, ids[i], e.class.Values[i])
	}
	return b.String(), nil
}

// shortID maps 0, 1, ..., 25, 26 to a, b, ..., z, ba.
func shortID(i int) string {
	var id []byte
	for {
		id = append([]byte{byte('a' + i%26)}, id...)
		i /= 26
		if i == 0 {
			return string(id)
		}
	}
}
