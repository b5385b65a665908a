package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/crucible/internal/config"
	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/messages"
	"github.com/signalnine/crucible/internal/mlog"
)

var (
	cfgFile string
	verbose bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crucible",
		Short: "Evaluate machine-learning schemes across in-process and worker engines",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "crucible.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log detailed progress")
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newReportCmd())
	return root
}

func newLogger() mlog.Logger {
	level := mlog.Basic
	if verbose {
		level = mlog.Detailed
	}
	return mlog.New(os.Stderr, level)
}

// setup loads the config and initialises the process-wide engine registry
// for it. Callers release the registry with engine.Teardown.
func setup() (*config.Config, *engine.Registry, messages.Catalog, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, err
	}
	msgs := messages.Default()
	if cfg.Messages != "" {
		if msgs, err = messages.Load(cfg.Messages); err != nil {
			return nil, nil, nil, err
		}
	}
	reg, err := engine.Init(&engine.Environment{
		PythonCommand: cfg.Backends.PythonCommand,
		PythonPath:    cfg.Backends.PythonPath,
		DockerImage:   cfg.Backends.DockerImage,
		EnvFile:       cfg.Backends.EnvFile,
		CheckBackends: cfg.CheckBackends(),
		Logger:        newLogger(),
		Messages:      msgs,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, reg, msgs, nil
}
