package filter_test

import (
	"math"
	"testing"

	"github.com/signalnine/crucible/internal/data"
	"github.com/signalnine/crucible/internal/filter"
	"github.com/signalnine/crucible/internal/learner"
	"github.com/signalnine/crucible/internal/model"
)

func mixed(n int) *data.Dataset {
	d := data.New("mixed", []data.Attribute{
		data.NumericAttribute("x"),
		data.NominalAttribute("colour", "red", "blue"),
		data.NominalAttribute("class", "yes", "no"),
	})
	d.SetClassIndex(2)
	for i := 0; i < n; i++ {
		c := 0.0
		if i%4 == 0 {
			c = 1
		}
		d.Add(data.Row{float64(i), float64(i % 2), c})
	}
	return d
}

func TestNewUnknownFilter(t *testing.T) {
	if _, err := filter.New("Bogus", ""); err == nil {
		t.Error("expected error for unknown class")
	}
	if _, err := filter.New("Resample", "-Q 1"); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestResample(t *testing.T) {
	tests := []struct {
		options string
		want    int
	}{
		{"", 20},
		{"-Z 50", 10},
		{"-Z 200 -no-replacement", 20},
	}
	for _, tt := range tests {
		t.Run(tt.options, func(t *testing.T) {
			f, err := filter.New("Resample", tt.options)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			out, err := f.Init(mixed(20))
			if err != nil {
				t.Fatalf("Init: %v", err)
			}
			if out.Len() != tt.want {
				t.Errorf("got %d rows, want %d", out.Len(), tt.want)
			}
			r := data.Row{1, 0, 0}
			if got, _ := f.Apply(r); got[0] != 1 {
				t.Error("sampling filter changed a test row")
			}
		})
	}
}

func TestSpreadSubsampleUniform(t *testing.T) {
	f := filter.NewSpreadSubsample()
	out, err := f.Init(mixed(20))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	counts := out.ClassCounts()
	if counts[0] != 5 || counts[1] != 5 {
		t.Errorf("class counts %v, want [5 5]", counts)
	}
}

func TestDiscretize(t *testing.T) {
	f, _ := filter.New("Discretize", "-B 4")
	out, err := f.Init(mixed(9))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	a := out.Attributes[0]
	if a.Kind != data.Nominal || len(a.Values) != 4 {
		t.Fatalf("attribute after discretize: %+v", a)
	}
	if a.Values[0] != "(-inf-2]" || a.Values[3] != "(6-inf)" {
		t.Errorf("labels %v", a.Values)
	}
	if out.Rows[0][0] != 0 || out.Rows[8][0] != 3 {
		t.Errorf("bins: first %v last %v", out.Rows[0][0], out.Rows[8][0])
	}
	r, _ := f.Apply(data.Row{100, 0, data.Missing})
	if r[0] != 3 {
		t.Errorf("out of range value binned to %v", r[0])
	}
	empty, _ := filter.NewDiscretize().Init(mixed(0))
	if got := empty.Attributes[0].Values; len(got) != 1 || got[0] != "All" {
		t.Errorf("empty data labels %v", got)
	}
}

func TestScalingFilters(t *testing.T) {
	d := mixed(5)
	d.Rows[2][0] = data.Missing
	norm, _ := filter.NewNormalize().Init(d)
	if norm.Rows[0][0] != 0 || norm.Rows[4][0] != 1 {
		t.Errorf("normalize: %v %v", norm.Rows[0][0], norm.Rows[4][0])
	}
	std, _ := filter.NewStandardize().Init(d)
	sum := 0.0
	for _, r := range std.Rows {
		if !data.IsMissing(r[0]) {
			sum += r[0]
		}
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("standardized mean not zero: %v", sum)
	}
	filled, _ := filter.NewReplaceMissingValues().Init(d)
	if got := filled.Rows[2][0]; got != 2 {
		t.Errorf("replaced missing with %v, want mean 2", got)
	}
	if !data.IsMissing(d.Rows[2][0]) {
		t.Error("filter modified its input")
	}
}

func TestChainOptionsRoundTrip(t *testing.T) {
	c := filter.NewChain(filter.NewResample(), filter.NewDiscretize())
	spec := filter.Spec(c)
	parsed, err := filter.Parse(spec)
	if err != nil {
		t.Fatalf("Parse(%q): %v", spec, err)
	}
	if got := filter.Spec(parsed); got != spec {
		t.Errorf("round trip: got %q, want %q", got, spec)
	}
}

func TestFilteredModel(t *testing.T) {
	fm := filter.NewFilteredModel(filter.NewDiscretize(), learner.NewNaiveBayes())
	if err := fm.Fit(mixed(40)); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	p, err := fm.Predict(data.Row{3, 1, data.Missing})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(p) != 2 {
		t.Errorf("distribution %v", p)
	}
	cp, err := fm.FreshCopy()
	if err != nil {
		t.Fatalf("FreshCopy: %v", err)
	}
	if model.JoinOptions(cp.Options()) != model.JoinOptions(fm.Options()) {
		t.Errorf("copy options %v, want %v", cp.Options(), fm.Options())
	}
	if err := cp.SetOptions(fm.Options()); err != nil {
		t.Errorf("SetOptions(Options()): %v", err)
	}
	if !filter.Contains(fm, "Discretize") || filter.Contains(fm, "Resample") {
		t.Error("Contains reported the wrong filters")
	}
}

func TestFilteredModelCheckData(t *testing.T) {
	// A numeric class is rejected by naive Bayes, filtered or not.
	d := data.New("n", []data.Attribute{data.NumericAttribute("x"), data.NumericAttribute("y")})
	d.SetClassIndex(1)
	fm := filter.NewFilteredModel(filter.NewDiscretize(), learner.NewNaiveBayes())
	if err := model.CheckData(fm, d); err == nil {
		t.Error("expected numeric class to be rejected")
	}
	if err := model.CheckData(fm, mixed(3)); err != nil {
		t.Errorf("CheckData: %v", err)
	}
}
