package worker

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

// RunOpts describes one worker container. WorkDir is mounted read-write
// at /workspace, which is also the working directory.
type RunOpts struct {
	Image   string
	Command []string
	WorkDir string
	Env     map[string]string
	// UserID is passed as the container user, "uid:gid". Empty runs as the
	// image default.
	UserID string
}

type RunResult struct {
	ExitCode int
	// Logs holds the last logTail lines of combined output.
	Logs string
}

const (
	workspace = "/workspace"
	logTail   = "100"
)

func dockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return cli, nil
}

// RunContainer runs opts.Command in a fresh container and waits for it to
// stop. The container is removed afterwards. A cancelled ctx kills it and
// is returned as an error.
func RunContainer(ctx context.Context, opts *RunOpts) (*RunResult, error) {
	cli, err := dockerClient()
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	env := make([]string, 0, len(opts.Env))
	for _, k := range slices.Sorted(maps.Keys(opts.Env)) {
		env = append(env, k+"="+opts.Env[k])
	}
	useInit := true
	created, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:      opts.Image,
			Cmd:        opts.Command,
			Env:        env,
			WorkingDir: workspace,
			User:       opts.UserID,
			Labels:     map[string]string{"crucible": "worker"},
		},
		HostConfig: &container.HostConfig{
			Mounts: []mount.Mount{{Type: mount.TypeBind, Source: opts.WorkDir, Target: workspace}},
			Init:   &useInit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating container from %s: %w", opts.Image, err)
	}
	id := created.ID
	defer cli.ContainerRemove(context.Background(), id, client.ContainerRemoveOptions{Force: true})

	if _, err := cli.ContainerStart(ctx, id, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container %.12s: %w", id, err)
	}
	wait := cli.ContainerWait(ctx, id, client.ContainerWaitOptions{Condition: container.WaitConditionNotRunning})
	select {
	case err := <-wait.Error:
		cli.ContainerKill(context.Background(), id, client.ContainerKillOptions{Signal: "SIGKILL"})
		return nil, fmt.Errorf("waiting for container %.12s: %w", id, err)
	case status := <-wait.Result:
		return &RunResult{ExitCode: int(status.StatusCode), Logs: containerLogs(cli, id)}, nil
	}
}

// containerLogs returns the tail of id's output, or "" when it cannot be
// read.
func containerLogs(cli *client.Client, id string) string {
	r, err := cli.ContainerLogs(context.Background(), id, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true, Tail: logTail})
	if err != nil || r == nil {
		return ""
	}
	defer r.Close()
	raw, _ := io.ReadAll(r)
	return string(raw)
}

// DockerBackend runs the worker inside Image. The interpreter is fixed by
// the image, so it does not implement CommandConfigurer.
type DockerBackend struct {
	Image   string
	Env     map[string]string
	scratch scratch
}

func NewDockerBackend(image string, env map[string]string) *DockerBackend {
	return &DockerBackend{Image: image, Env: env}
}

func (b *DockerBackend) Name() string { return "docker" }

// Probe pings the daemon and checks that the image runs the worker.
func (b *DockerBackend) Probe() error {
	if b.Image == "" {
		return fmt.Errorf("no worker image configured")
	}
	if err := Ping(context.Background()); err != nil {
		return err
	}
	if _, err := b.Run(&Request{Op: "version"}, nil); err != nil {
		return fmt.Errorf("worker image %s: %w", b.Image, err)
	}
	return nil
}

func (b *DockerBackend) Run(req *Request, env map[string]string) (*Response, error) {
	return b.scratch.exchange(req, func(dir, reqName, respName string) error {
		merged := make(map[string]string, len(b.Env)+len(env))
		for k, v := range b.Env {
			merged[k] = v
		}
		for k, v := range env {
			merged[k] = v
		}
		res, err := RunContainer(context.Background(), &RunOpts{
			Image:   b.Image,
			Command: []string{"python", scriptName, reqName, respName},
			WorkDir: dir,
			Env:     merged,
			UserID:  fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		})
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("worker container exited with %d: %s", res.ExitCode, strings.TrimSpace(res.Logs))
		}
		return nil
	})
}

func (b *DockerBackend) Close() error { return b.scratch.remove() }

// Ping checks that a Docker daemon is reachable.
func Ping(ctx context.Context) error {
	cli, err := dockerClient()
	if err != nil {
		return err
	}
	defer cli.Close()
	if _, err := cli.Ping(ctx, client.PingOptions{}); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}
