package mlog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/signalnine/crucible/internal/mlog"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level    mlog.Level
		detailed bool
	}{
		{mlog.Basic, false},
		{mlog.Detailed, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := mlog.New(&buf, tt.level)
		l.LogBasic("basic line")
		l.LogDetailed("detailed line")
		out := buf.String()
		if !strings.Contains(out, "basic line") {
			t.Errorf("level %d: basic message missing", tt.level)
		}
		if got := strings.Contains(out, "detailed line"); got != tt.detailed {
			t.Errorf("level %d: detailed logged = %v, want %v", tt.level, got, tt.detailed)
		}
	}
}

func TestOrNop(t *testing.T) {
	l := mlog.OrNop(nil)
	l.LogBasic("ignored")
	l.LogDetailed("ignored")
}
