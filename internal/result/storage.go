package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CreateRunDir makes a timestamped directory under baseDir/runs and points
// baseDir/latest at it. Runs started within the same second get a numeric
// suffix.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	for n := 2; ; n++ {
		if _, err := os.Stat(runDir); os.IsNotExist(err) {
			break
		}
		runDir = filepath.Join(runsDir, fmt.Sprintf("%s-%d", stamp, n))
	}
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// slug lowercases name and replaces runs of non-alphanumerics with '-'.
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func EvaluationDir(runDir, engine, scheme, mode string) string {
	return filepath.Join(runDir, "evaluations", slug(engine), slug(scheme), slug(mode))
}

func WriteEvaluationMeta(dir string, meta *EvaluationMeta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating evaluation dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o644)
}

func ReadEvaluationMeta(path string) (*EvaluationMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	var meta EvaluationMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta: %w", err)
	}
	return &meta, nil
}

// CollectEvaluations reads every meta.json under runDir, ordered by
// engine then scheme. Unreadable files are skipped.
func CollectEvaluations(runDir string) ([]*EvaluationMeta, error) {
	var metas []*EvaluationMeta
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == "meta.json" {
			meta, err := ReadEvaluationMeta(path)
			if err != nil {
				return nil
			}
			metas = append(metas, meta)
		}
		return nil
	})
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].Engine != metas[j].Engine {
			return metas[i].Engine < metas[j].Engine
		}
		return metas[i].Scheme < metas[j].Scheme
	})
	return metas, err
}
