package worker

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// ExecBackend runs the worker with a local Python interpreter. Calls block
// until the interpreter exits.
type ExecBackend struct {
	mu       sync.Mutex
	command  string
	path     string
	serverID string
	env      map[string]string
	scratch  scratch
}

// NewExecBackend uses command (default python3). path, when set, is
// prepended to PATH; env adds variables to every worker process.
func NewExecBackend(command, path string, env map[string]string) *ExecBackend {
	if command == "" {
		command = "python3"
	}
	return &ExecBackend{command: command, path: path, env: env}
}

func (b *ExecBackend) Name() string { return "python" }

func (b *ExecBackend) ConfigureCommand(command, path, serverID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if command != "" {
		b.command = command
	}
	if path != "" {
		b.path = path
	}
	b.serverID = serverID
	return nil
}

// Settings returns the interpreter command, search path and server id.
func (b *ExecBackend) Settings() (command, path, serverID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.command, b.path, b.serverID
}

// Probe checks that the interpreter exists and can import scikit-learn.
func (b *ExecBackend) Probe() error {
	command, _, _ := b.Settings()
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("python interpreter %q not found: %w", command, err)
	}
	if _, err := b.Run(&Request{Op: "version"}, nil); err != nil {
		return fmt.Errorf("scikit-learn not importable: %w", err)
	}
	return nil
}

func (b *ExecBackend) Run(req *Request, env map[string]string) (*Response, error) {
	command, path, serverID := b.Settings()
	return b.scratch.exchange(req, func(dir, reqName, respName string) error {
		cmd := exec.Command(command, scriptName, reqName, respName)
		cmd.Dir = dir
		cmd.Env = b.environ(path, serverID, env)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("running python worker: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	})
}

func (b *ExecBackend) environ(path, serverID string, extra map[string]string) []string {
	env := os.Environ()
	if path != "" {
		env = append(env, "PATH="+path+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
	if serverID != "" {
		env = append(env, "CRUCIBLE_SERVER_ID="+serverID)
	}
	for _, m := range []map[string]string{b.env, extra} {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = append(env, k+"="+m[k])
		}
	}
	return env
}

func (b *ExecBackend) Close() error { return b.scratch.remove() }
