package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/runner"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that each configured scheme can handle the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reg, _, err := setup()
			if err != nil {
				return err
			}
			defer engine.Teardown()

			train, _, err := runner.LoadData(cfg)
			if err != nil {
				return err
			}
			failed := 0
			for _, res := range runner.Check(reg, cfg.Schemes, train) {
				name := res.Scheme.Engine + "/" + res.Scheme.Scheme
				switch {
				case res.Err != nil:
					failed++
					fmt.Printf("  %-40s ERROR %v\n", name, res.Err)
				case !res.OK:
					failed++
					fmt.Printf("  %-40s REFUSED\n", name)
				default:
					fmt.Printf("  %-40s ok\n", name)
				}
				for _, m := range res.Messages {
					fmt.Printf("      %s\n", m)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d schemes cannot run on %s", failed, len(cfg.Schemes), cfg.Dataset.Path)
			}
			return nil
		},
	}
}
