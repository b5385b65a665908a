package worker

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

//go:embed worker.py
var workerScript []byte

const scriptName = "worker.py"

// scratch is a directory shared with the worker process. It holds the
// worker script, request and response files, and fitted model files.
type scratch struct {
	mu  sync.Mutex
	dir string
}

func (s *scratch) path() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		return s.dir, nil
	}
	dir, err := os.MkdirTemp("", "crucible-worker-")
	if err != nil {
		return "", fmt.Errorf("creating worker directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, scriptName), workerScript, 0o644); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("writing worker script: %w", err)
	}
	s.dir = dir
	return dir, nil
}

func (s *scratch) remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir == "" {
		return nil
	}
	err := os.RemoveAll(s.dir)
	s.dir = ""
	return err
}

// exchange writes req, calls run with the request and response file names
// (relative to the scratch directory) and decodes the response.
func (s *scratch) exchange(req *Request, run func(dir, reqName, respName string) error) (*Response, error) {
	dir, err := s.path()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	reqName, respName := "req-"+id+".json", "resp-"+id+".json"
	defer os.Remove(filepath.Join(dir, reqName))
	defer os.Remove(filepath.Join(dir, respName))

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, reqName), body, 0o644); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if err := run(dir, reqName, respName); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, respName))
	if err != nil {
		return nil, fmt.Errorf("worker wrote no response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return checkResponse(&resp)
}

// ParseEnvFile reads KEY=VALUE lines, skipping blanks and comments and
// accepting an optional "export " prefix and quoted values.
func ParseEnvFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	env := make(map[string]string)
	for _, line := range strings.Split(string(raw), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s[0] == '#' {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		key, val, ok := strings.Cut(s, "=")
		if !ok {
			continue
		}
		env[strings.TrimSpace(key)] = stripQuotes(strings.TrimSpace(val))
	}
	return env, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
