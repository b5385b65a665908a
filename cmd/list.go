package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalnine/crucible/internal/engine"
	"github.com/signalnine/crucible/internal/filter"
	"github.com/signalnine/crucible/internal/runner"
)

var flagParameters bool

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List engines, their availability and supported schemes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, reg, _, err := setup()
			if err != nil {
				return err
			}
			defer engine.Teardown()

			fmt.Println("Engines:")
			for _, name := range reg.Names() {
				e, err := reg.Engine(name)
				if err != nil {
					return err
				}
				ok, reasons := e.Available()
				status := "available"
				if !ok {
					status = "unavailable: " + strings.Join(reasons, "; ")
				}
				fmt.Printf("  - %s (%s)\n", name, status)
				for _, s := range engine.SupportedSchemes(e) {
					fmt.Printf("      %s\n", s)
				}
			}
			fmt.Printf("\nFilters: %s\n", strings.Join(filter.Classes(), ", "))

			if !flagParameters {
				return nil
			}
			fmt.Println("\nConfigured schemes:")
			for i := range cfg.Schemes {
				sc := &cfg.Schemes[i]
				s, err := runner.ConfigureScheme(reg, sc)
				if err != nil {
					fmt.Printf("  - %s/%s: %v\n", sc.Engine, sc.Scheme, err)
					continue
				}
				info, err := s.Info()
				if err != nil {
					fmt.Printf("  - %s/%s: %v\n", sc.Engine, sc.Scheme, err)
					continue
				}
				fmt.Printf("  - %s/%s (%s)\n", sc.Engine, info.Scheme, info.Model)
				for _, p := range info.Parameters {
					fmt.Printf("      %s = %s\t[%s] %s\n", p.Name, p.Value, p.Type, p.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagParameters, "parameters", false, "also describe the parameters of each configured scheme")
	return cmd
}
