package messages_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/crucible/internal/messages"
)

func TestDefaultCatalog(t *testing.T) {
	c := messages.Default()
	tests := []struct {
		key    string
		params []interface{}
		want   string
	}{
		{messages.EvaluatorNotInitialized, nil, "This Evaluator object has not been initialized."},
		{messages.PerformingCrossValidation, []interface{}{10}, "Performing 10-fold cross-validation..."},
		{messages.UnableToPerformCrossValidation, []interface{}{10, 4},
			"Unable to perform a 10 fold cross-validation because there are fewer training instances (4) than folds."},
		{messages.PerformingPercentageSplit, []interface{}{66}, "Performing a percentage split (66%) evaluation..."},
		{"No.Such.Key", nil, "No.Such.Key"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := c.Get(tt.key, tt.params...); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.properties")
	os.WriteFile(path, []byte("Evaluator.Message.TrainingModelForFold = Fold {0}: training\n"), 0o644)
	c, err := messages.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.Get(messages.TrainingModelForFold, 3); got != "Fold 3: training" {
		t.Errorf("override: got %q", got)
	}
	if got := c.Get(messages.EvaluationWasNotPerformed); got != "Evaluation was not performed." {
		t.Errorf("default kept: got %q", got)
	}
}
