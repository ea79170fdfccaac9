package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

func newMaterialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "List the material catalog",
		Long: `List the materials the simulator knows, including any added or
overridden by the config file.

Examples:
  nloscreen materials
  nloscreen materials --sourcing commercial
  nloscreen materials --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			sourcing, _ := cmd.Flags().GetStringSlice("sourcing")

			catalog := a.sim.Catalog()
			specs := catalog.Specs()
			if len(sourcing) > 0 {
				allowed := make([]models.Sourcing, 0, len(sourcing))
				for _, s := range sourcing {
					allowed = append(allowed, models.Sourcing(strings.ToLower(s)))
				}
				names := catalog.FilterBySourcing(allowed...)
				specs = slices.DeleteFunc(specs, func(s models.MaterialSpec) bool {
					return !slices.Contains(names, s.Name)
				})
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"materials": specs})
			}

			rows := make([][]string, 0, len(specs))
			for _, s := range specs {
				rows = append(rows, []string{
					s.Name,
					string(s.Model),
					string(s.Sourcing),
					fmt.Sprintf("%g", s.N),
					fmt.Sprintf("%g", s.K),
					fmt.Sprintf("%g", s.N2),
					fmt.Sprintf("%g", s.LayerThicknessNm),
					formatPtr(s.SaturationIntensity),
					formatPtr(s.RecoveryTime),
					formatPtr(s.SaturableFraction),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Materials (%d)", len(specs))))
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Model", "Sourcing", "n", "k", "n2 [m²/W]", "t [nm]", "Isat [W/m²]", "τ [s]", "f_sat"},
				rows, -1, nil))
			return nil
		},
	}
	cmd.Flags().StringSlice("sourcing", nil, "Only list materials with these sourcing classes")
	return cmd
}
