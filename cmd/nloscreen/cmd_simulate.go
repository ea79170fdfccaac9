package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/improvement"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate one device configuration",
		Long: `Sweep the input intensity through one device configuration and report
its transmission KPIs and score.

Examples:
  nloscreen simulate --material WS2 --layers 5 --wavelength 1300 --q 391.7 --gamma 0.5
  nloscreen simulate --material GRAPHENE --layers 2 --wavelength 1550 --q 200 --gamma 0.2 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			withCurve, _ := cmd.Flags().GetBool("curve")

			var cfg models.DeviceConfig
			cfg.Material, _ = cmd.Flags().GetString("material")
			cfg.Layers, _ = cmd.Flags().GetInt("layers")
			cfg.WavelengthNm, _ = cmd.Flags().GetFloat64("wavelength")
			cfg.Q, _ = cmd.Flags().GetFloat64("q")
			cfg.Gamma, _ = cmd.Flags().GetFloat64("gamma")
			cfg.InteractionLengthUm, _ = cmd.Flags().GetFloat64("interaction-length")

			obj, err := improvement.ObjectiveFromConfig(a.cfg.Scorer)
			if err != nil {
				return err
			}
			kpis, err := a.sim.Simulate(cfg)
			if err != nil {
				return err
			}
			score := obj.Score(kpis)
			if !withCurve {
				kpis.Curve = nil
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"config":     cfg,
					"kpis":       kpis,
					"objective":  obj.Name(),
					"score":      score,
					"degenerate": kpis.Degenerate(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(cfg.String()))
			rows := [][]string{
				{"T0", formatFixed(kpis.T0, 6)},
				{"Contrast", formatSci(kpis.Contrast)},
				{"Knee intensity [W/m²]", formatOptional(kpis.KneeIntensity, kpis.KneeDefined)},
				{"Switching energy [pJ]", formatOptional(kpis.SwitchingEnergyPJ, kpis.KneeDefined)},
				{"Response time [s]", formatSci(kpis.ResponseTime)},
				{"Score (" + obj.Name() + ")", formatSci(score)},
			}
			fmt.Fprintln(out, renderTable([]string{"KPI", "Value"}, rows, -1, nil))
			if kpis.Degenerate() {
				fmt.Fprintln(out, mutedStyle.Render(models.ErrNumericalDegeneracy.Error()))
			}
			if kpis.Curve != nil {
				curveRows := make([][]string, 0, len(kpis.Curve.Intensity))
				for i, in := range kpis.Curve.Intensity {
					curveRows = append(curveRows, []string{formatSci(in), formatFixed(kpis.Curve.Transmission[i], 8)})
				}
				fmt.Fprintln(out, renderTable([]string{"I [W/m²]", "T"}, curveRows, -1, nil))
			}
			return nil
		},
	}
	cmd.Flags().String("material", "WS2", "Material name")
	cmd.Flags().Int("layers", 5, "Number of layers")
	cmd.Flags().Float64("wavelength", 1300, "Wavelength [nm]")
	cmd.Flags().Float64("q", 391.7, "Resonator quality factor")
	cmd.Flags().Float64("gamma", 0.5, "Confinement factor in (0, 1]")
	cmd.Flags().Float64("interaction-length", 0, "Interaction length [µm] (0 uses the default)")
	cmd.Flags().Bool("curve", false, "Include the sampled transmission curve")
	return cmd
}
