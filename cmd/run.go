package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/signalnine/crucible/internal/config"
	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/report"
	"github.com/signalnine/crucible/internal/result"
	"github.com/signalnine/crucible/internal/runner"
	"github.com/signalnine/crucible/internal/vars"
)

var (
	flagScheme   string
	flagEngine   string
	flagParallel int
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the configured schemes",
		RunE:  runEvaluations,
	}
	cmd.Flags().StringVar(&flagScheme, "scheme", "", "filter to a single scheme")
	cmd.Flags().StringVar(&flagEngine, "engine", "", "filter to a single engine")
	cmd.Flags().IntVar(&flagParallel, "parallel", 0, "max concurrent evaluations (default from config)")
	return cmd
}

func runEvaluations(cmd *cobra.Command, args []string) error {
	cfg, reg, msgs, err := setup()
	if err != nil {
		return err
	}
	defer engine.Teardown()

	schemes := filterSchemes(cfg.Schemes, flagScheme, flagEngine)
	if len(schemes) == 0 {
		return fmt.Errorf("no configured scheme matches scheme=%q engine=%q", flagScheme, flagEngine)
	}
	parallel := cfg.Parallel
	if flagParallel > 0 {
		parallel = flagParallel
	}

	train, test, err := runner.LoadData(cfg)
	if err != nil {
		return err
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	idx, err := result.OpenIndex(filepath.Join(cfg.Results.Dir, "history.db"))
	if err != nil {
		log.Printf("warning: history disabled: %v", err)
		idx = nil
	} else {
		defer idx.Close()
	}

	var variables vars.Resolver
	if len(cfg.Variables) > 0 {
		variables = vars.FromMap(cfg.Variables)
	}

	jobs := make([]runner.Job, len(schemes))
	for i := range schemes {
		sc := &schemes[i]
		jobs[i] = func() error {
			_, err := runner.RunEvaluation(&runner.EvalOpts{
				Registry:  reg,
				Scheme:    sc,
				Train:     train,
				Test:      test,
				Mode:      cfg.EvalMode(),
				Config:    cfg.EvalConfig(),
				Messages:  msgs,
				Logger:    newLogger(),
				Variables: variables,
				RunDir:    runDir,
				Index:     idx,
			})
			if err != nil {
				return fmt.Errorf("%s/%s: %w", sc.Engine, sc.Scheme, err)
			}
			return nil
		}
	}

	bar := pb.New(len(jobs)).SetWriter(os.Stderr).Start()
	errs := runner.RunPool(parallel, jobs, func(int, error) { bar.Increment() })
	bar.Finish()
	for _, err := range errs {
		fmt.Printf("  ERROR: %v\n", err)
	}

	fmt.Println("\n--- Results ---")
	return report.Generate(runDir, "table", os.Stdout)
}

func filterSchemes(schemes []config.Scheme, name, engineName string) []config.Scheme {
	var filtered []config.Scheme
	for _, s := range schemes {
		if name != "" && !strings.EqualFold(s.Scheme, name) {
			continue
		}
		if engineName != "" && !strings.EqualFold(s.Engine, engineName) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}
