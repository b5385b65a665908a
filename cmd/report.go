package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/crucible/internal/config"
	"github.com/signalnine/crucible/internal/report"
	"github.com/signalnine/crucible/internal/result"
)

var (
	flagFormat  string
	flagHistory string
	flagLimit   int
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir]",
		Short: "Generate summary from stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if flagHistory != "" {
				idx, err := result.OpenIndex(filepath.Join(cfg.Results.Dir, "history.db"))
				if err != nil {
					return err
				}
				defer idx.Close()
				entries, err := idx.History(flagHistory, flagLimit)
				if err != nil {
					return err
				}
				return report.WriteHistory(entries, os.Stdout)
			}

			runDir := filepath.Join(cfg.Results.Dir, "latest")
			if len(args) > 0 {
				runDir = args[0]
			}
			resolved, err := filepath.EvalSymlinks(runDir)
			if err != nil {
				return fmt.Errorf("resolving run dir: %w", err)
			}
			return report.Generate(resolved, flagFormat, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().StringVar(&flagHistory, "history", "", "show recorded evaluations of a scheme across runs")
	cmd.Flags().IntVar(&flagLimit, "limit", 20, "max history entries (0 for all)")
	return cmd
}
