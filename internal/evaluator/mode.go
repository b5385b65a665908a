package evaluator

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how the training data is split between fitting and testing.
type Mode int

const (
	None Mode = iota
	PercentageSplit
	CrossValidation
	SeparateTestSet
	Prequential
)

var modeNames = []string{"none", "percentage_split", "cross_validation", "separate_test_set", "prequential"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode accepts the names returned by String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return None, fmt.Errorf("unknown evaluation mode %q", s)
}

type Config struct {
	Folds           int
	PercentageSplit int
	Seed            int64
	ComputeAUC      bool
	OutputIRMetrics bool
	PreserveOrder   bool
}

func DefaultConfig() Config {
	return Config{Folds: 10, PercentageSplit: 66, Seed: 1}
}

var (
	// ErrIllegalState marks calls made out of sequence.
	ErrIllegalState = errors.New("illegal state")
	// ErrUnsupportedConfiguration marks a mode the model cannot be run in.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
)

func illegalState(msg string) error {
	return fmt.Errorf("%w: %s", ErrIllegalState, msg)
}

func unsupported(msg string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedConfiguration, msg)
}
