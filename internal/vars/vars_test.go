package vars_test

import (
	"path/filepath"
	"testing"

	"github.com/signalnine/crucible/internal/vars"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"file uri", "file:///srv/data/iris.csv", filepath.FromSlash("/srv/data/iris.csv")},
		{"spaces", "file:///srv/my data/x.csv", filepath.FromSlash("/srv/my data/x.csv")},
		{"upper case scheme", "FILE:///tmp/a", filepath.FromSlash("/tmp/a")},
		{"http untouched", "http://example.com/a b", "http://example.com/a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vars.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	if got := vars.Resolve(nil); got != nil {
		t.Errorf("nil resolver: got %v", got)
	}
	r := vars.FromEnviron([]string{"A=1", "B=file:///x/y", "broken"})
	got := vars.Resolve(r)
	if len(got) != 2 {
		t.Fatalf("got %d vars, want 2", len(got))
	}
	if got["A"] != "1" || got["B"] != filepath.FromSlash("/x/y") {
		t.Errorf("unexpected values %v", got)
	}
	if names := r.Names(); names[0] != "A" || names[1] != "B" {
		t.Errorf("names not sorted: %v", names)
	}
}
