package data

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

type Kind int

const (
	Numeric Kind = iota
	Nominal
	String
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Nominal:
		return "nominal"
	case String:
		return "string"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Attribute describes one column. Nominal and string columns store value
// indices in rows; Values holds the labels in index order.
type Attribute struct {
	Name   string
	Kind   Kind
	Values []string
}

func NumericAttribute(name string) Attribute {
	return Attribute{Name: name, Kind: Numeric}
}

func NominalAttribute(name string, values ...string) Attribute {
	return Attribute{Name: name, Kind: Nominal, Values: append([]string(nil), values...)}
}

func StringAttribute(name string) Attribute {
	return Attribute{Name: name, Kind: String}
}

// IndexOf returns the index of value, or -1.
func (a *Attribute) IndexOf(value string) int {
	for i, v := range a.Values {
		if v == value {
			return i
		}
	}
	return -1
}

// AddValue returns the index of value, appending it when unseen.
func (a *Attribute) AddValue(value string) int {
	if i := a.IndexOf(value); i >= 0 {
		return i
	}
	a.Values = append(a.Values, value)
	return len(a.Values) - 1
}

func (a Attribute) copy() Attribute {
	a.Values = append([]string(nil), a.Values...)
	return a
}

// Row holds one value per attribute. Missing values are NaN.
type Row []float64

func (r Row) Copy() Row {
	return append(Row(nil), r...)
}

var Missing = math.NaN()

func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Dataset is a header plus rows. ClassIndex is -1 when no target is set.
type Dataset struct {
	Relation   string
	Attributes []Attribute
	Rows       []Row
	ClassIndex int
}

func New(relation string, attrs []Attribute) *Dataset {
	d := &Dataset{Relation: relation, ClassIndex: -1}
	for _, a := range attrs {
		d.Attributes = append(d.Attributes, a.copy())
	}
	return d
}

// Header returns a copy with the attributes and class index but no rows.
func (d *Dataset) Header() *Dataset {
	h := New(d.Relation, d.Attributes)
	h.ClassIndex = d.ClassIndex
	return h
}

func (d *Dataset) Copy() *Dataset {
	return d.Subset(0, len(d.Rows))
}

// Subset returns a deep copy of n rows starting at from.
func (d *Dataset) Subset(from, n int) *Dataset {
	s := d.Header()
	s.Rows = make([]Row, 0, n)
	for _, r := range d.Rows[from : from+n] {
		s.Rows = append(s.Rows, r.Copy())
	}
	return s
}

func (d *Dataset) Len() int { return len(d.Rows) }

func (d *Dataset) NumAttributes() int { return len(d.Attributes) }

func (d *Dataset) Add(r Row) error {
	if len(r) != len(d.Attributes) {
		return fmt.Errorf("row has %d values, dataset has %d attributes", len(r), len(d.Attributes))
	}
	d.Rows = append(d.Rows, r)
	return nil
}

func (d *Dataset) AttributeIndex(name string) int {
	for i, a := range d.Attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func (d *Dataset) SetClass(name string) error {
	i := d.AttributeIndex(name)
	if i < 0 {
		return fmt.Errorf("no attribute named %q", name)
	}
	return d.SetClassIndex(i)
}

func (d *Dataset) SetClassIndex(i int) error {
	if i < -1 || i >= len(d.Attributes) {
		return fmt.Errorf("class index %d out of range", i)
	}
	if i >= 0 && d.Attributes[i].Kind == String {
		return fmt.Errorf("string attribute %q cannot be the class", d.Attributes[i].Name)
	}
	d.ClassIndex = i
	return nil
}

// CheckCompatible reports why rows of other cannot be read with d's
// header: attributes must agree in name, kind and order, nominal
// attributes in their values, and the class index must be the same.
// String attributes may differ in the values seen so far.
func (d *Dataset) CheckCompatible(other *Dataset) error {
	if len(d.Attributes) != len(other.Attributes) {
		return fmt.Errorf("%d attributes, expected %d", len(other.Attributes), len(d.Attributes))
	}
	if d.ClassIndex != other.ClassIndex {
		return fmt.Errorf("class index %d, expected %d", other.ClassIndex, d.ClassIndex)
	}
	for i, a := range d.Attributes {
		b := other.Attributes[i]
		if a.Name != b.Name || a.Kind != b.Kind {
			return fmt.Errorf("attribute %d is %s %s, expected %s %s", i, b.Kind, b.Name, a.Kind, a.Name)
		}
		if a.Kind != Nominal {
			continue
		}
		if len(a.Values) != len(b.Values) {
			return fmt.Errorf("attribute %s has %d values, expected %d", a.Name, len(b.Values), len(a.Values))
		}
		for j := range a.Values {
			if a.Values[j] != b.Values[j] {
				return fmt.Errorf("attribute %s value %d is %q, expected %q", a.Name, j, b.Values[j], a.Values[j])
			}
		}
	}
	return nil
}

// ClassAttribute returns the target attribute, or nil when unset.
func (d *Dataset) ClassAttribute() *Attribute {
	if d.ClassIndex < 0 {
		return nil
	}
	return &d.Attributes[d.ClassIndex]
}

func (d *Dataset) NominalClass() bool {
	c := d.ClassAttribute()
	return c != nil && c.Kind == Nominal
}

func (d *Dataset) NumericClass() bool {
	c := d.ClassAttribute()
	return c != nil && c.Kind == Numeric
}

// NumClasses is the number of class labels, or 1 for a numeric target.
func (d *Dataset) NumClasses() int {
	c := d.ClassAttribute()
	switch {
	case c == nil:
		return 0
	case c.Kind == Nominal:
		return len(c.Values)
	}
	return 1
}

// HasKind reports whether any attribute has the given kind.
func (d *Dataset) HasKind(kind Kind, skipClass bool) bool {
	for i, a := range d.Attributes {
		if skipClass && i == d.ClassIndex {
			continue
		}
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// ClassCounts counts rows per class label. Rows with a missing class are skipped.
func (d *Dataset) ClassCounts() []float64 {
	counts := make([]float64, d.NumClasses())
	if !d.NominalClass() {
		return counts
	}
	for _, r := range d.Rows {
		if v := r[d.ClassIndex]; !IsMissing(v) {
			counts[int(v)]++
		}
	}
	return counts
}

// ClearClass sets the target of every row to missing.
func (d *Dataset) ClearClass() {
	if d.ClassIndex < 0 {
		return
	}
	for _, r := range d.Rows {
		r[d.ClassIndex] = Missing
	}
}

// Randomize shuffles rows in place using r.
func (d *Dataset) Randomize(r *rand.Rand) {
	for i := len(d.Rows) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		d.Rows[i], d.Rows[j] = d.Rows[j], d.Rows[i]
	}
}

// Stratify reorders rows so that contiguous fold blocks receive class
// shares proportional to the whole dataset. Only nominal targets are
// stratified.
func (d *Dataset) Stratify(folds int) {
	if !d.NominalClass() || folds < 2 {
		return
	}
	c := d.ClassIndex
	same := func(a, b Row) bool {
		return a[c] == b[c] || (IsMissing(a[c]) && IsMissing(b[c]))
	}
	index := 1
	for index < len(d.Rows) {
		first := d.Rows[index-1]
		for j := index; j < len(d.Rows); j++ {
			if same(first, d.Rows[j]) {
				d.Rows[index], d.Rows[j] = d.Rows[j], d.Rows[index]
				index++
			}
		}
		index++
	}

	strat := make([]Row, 0, len(d.Rows))
	for start := 0; len(strat) < len(d.Rows); start++ {
		for j := start; j < len(d.Rows); j += folds {
			strat = append(strat, d.Rows[j])
		}
	}
	d.Rows = strat
}

func (d *Dataset) foldBounds(folds, fold int) (first, size int) {
	n := len(d.Rows)
	size = n / folds
	offset := n % folds
	if fold < n%folds {
		size++
		offset = fold
	}
	first = fold*(n/folds) + offset
	return first, size
}

// TestCV returns the rows of fold (0-based) out of folds.
func (d *Dataset) TestCV(folds, fold int) *Dataset {
	first, size := d.foldBounds(folds, fold)
	return d.Subset(first, size)
}

// TrainCV returns every row outside fold, shuffled with r.
func (d *Dataset) TrainCV(folds, fold int, r *rand.Rand) *Dataset {
	first, size := d.foldBounds(folds, fold)
	train := d.Subset(0, first)
	rest := d.Subset(first+size, len(d.Rows)-first-size)
	train.Rows = append(train.Rows, rest.Rows...)
	train.Randomize(r)
	return train
}

// Format renders the value at column col of row as text.
func (d *Dataset) Format(r Row, col int) string {
	v := r[col]
	if IsMissing(v) {
		return "?"
	}
	a := d.Attributes[col]
	if a.Kind == Numeric {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	i := int(v)
	if i < 0 || i >= len(a.Values) {
		return "?"
	}
	return a.Values[i]
}
