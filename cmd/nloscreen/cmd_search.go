package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/improvement"
	"github.com/GoSim-25-26J-441/nlo-screen/internal/metrics"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search device configurations for the best score",
		Long: `Evaluate every configuration of the configured search space and report
the best ones. The search space comes from the config file; flags override it.

Examples:
  nloscreen search --config testdata/sample_run.yaml
  nloscreen search --strategy grid --materials WS2,MOS2 --workers 8
  nloscreen search --strategy random --samples 500 --seed 7 --top 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if err := applySearchFlags(cmd, a.cfg); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			top, _ := cmd.Flags().GetInt("top")
			showMetrics, _ := cmd.Flags().GetBool("metrics")

			strategy, err := improvement.StrategyFromConfig(a.cfg.Search, a.sim.Catalog())
			if err != nil {
				return err
			}
			searcher, err := improvement.SearcherFromConfig(a.sim, a.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var result *improvement.SearchResult
			if a.cfg.Search.Workers > 1 {
				result, err = searcher.RunParallel(ctx, strategy, a.cfg.Search.Workers)
			} else {
				result, err = searcher.Run(ctx, strategy)
			}
			if err != nil && result == nil {
				return err
			}
			if result.Best == nil {
				return fmt.Errorf("no configuration could be evaluated (%d failed)", result.Failed)
			}

			if jsonOut {
				if werr := writeSearchJSON(cmd.OutOrStdout(), result, top); werr != nil {
					return werr
				}
			} else {
				writeSearchTable(cmd.OutOrStdout(), result, top)
				if showMetrics {
					writeMetricsTable(cmd.OutOrStdout(), metrics.BuildReport(metrics.FromRecords(result.Records, result.Duration)))
				}
			}
			return err
		},
	}
	cmd.Flags().String("strategy", "", "Search strategy (grid, random, list)")
	cmd.Flags().StringSlice("materials", nil, "Materials to search")
	cmd.Flags().StringSlice("sourcing", nil, "Allowed sourcing classes (commercial, lab, experimental)")
	cmd.Flags().String("objective", "", "Objective (figure_of_merit, contrast_per_energy)")
	cmd.Flags().Int("workers", 0, "Parallel workers (0 or 1 runs sequentially)")
	cmd.Flags().Int("samples", 0, "Random search samples")
	cmd.Flags().Int64("seed", 0, "Random search seed")
	cmd.Flags().Int("patience", 0, "Stop a sequential search after this many evaluations without improvement")
	cmd.Flags().Int("top", 10, "Number of ranked records to show")
	cmd.Flags().Bool("metrics", false, "Print per-material KPI statistics (always included with --json)")
	return cmd
}

// applySearchFlags overlays explicitly set flags on the configured search and
// scorer, then re-validates both
func applySearchFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	s := &cfg.Search
	if flags.Changed("strategy") {
		s.Strategy, _ = flags.GetString("strategy")
	}
	if flags.Changed("materials") {
		s.Materials, _ = flags.GetStringSlice("materials")
	}
	if flags.Changed("sourcing") {
		raw, _ := flags.GetStringSlice("sourcing")
		s.Sourcing = make([]models.Sourcing, 0, len(raw))
		for _, v := range raw {
			s.Sourcing = append(s.Sourcing, models.Sourcing(v))
		}
	}
	if flags.Changed("workers") {
		s.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("samples") {
		s.Samples, _ = flags.GetInt("samples")
	}
	if flags.Changed("seed") {
		s.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("patience") {
		s.Patience, _ = flags.GetInt("patience")
	}
	if err := config.NormalizeSearch(s); err != nil {
		return err
	}
	if flags.Changed("objective") {
		cfg.Scorer.Objective, _ = flags.GetString("objective")
	}
	return config.NormalizeScorer(&cfg.Scorer)
}

func writeSearchJSON(w io.Writer, result *improvement.SearchResult, top int) error {
	out := map[string]any{
		"strategy":   result.Strategy,
		"objective":  result.Objective,
		"best":       result.Best,
		"top":        improvement.TopN(result.Records, top),
		"evaluated":  result.Evaluated,
		"failed":     result.Failed,
		"degenerate": result.Degenerate,
	}
	if result.Stopped != "" {
		out["stopped"] = result.Stopped
	}
	if summary, err := improvement.Summarize(result.Records); err == nil {
		out["summary"] = summary
	}
	out["metrics"] = metrics.BuildReport(metrics.FromRecords(result.Records, result.Duration))
	return writeJSON(w, out)
}

func writeSearchTable(w io.Writer, result *improvement.SearchResult, top int) {
	ranked := improvement.TopN(result.Records, top)
	rows := make([][]string, 0, len(ranked))
	for i, r := range ranked {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Config.Material,
			strconv.Itoa(r.Config.Layers),
			fmt.Sprintf("%g", r.Config.WavelengthNm),
			formatFixed(r.Config.Q, 1),
			formatFixed(r.Config.Gamma, 2),
			formatFixed(r.KPIs.T0, 6),
			formatSci(r.KPIs.Contrast),
			formatOptional(r.KPIs.SwitchingEnergyPJ, r.KPIs.KneeDefined),
			formatSci(r.Score),
		})
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Search: %s / %s", result.Strategy, result.Objective)))
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Material", "Layers", "λ [nm]", "Q", "Γ", "T0", "Contrast", "E [pJ]", "Score"},
		rows, 0, nil))

	failed := make(map[int]bool)
	var failures [][]string
	for _, r := range result.Records {
		if r.Status == models.RecordStatusFailed {
			failed[len(failures)] = true
			failures = append(failures, []string{strconv.Itoa(r.Index), r.Config.String(), r.Error})
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(w, renderTable([]string{"Index", "Config", "Error"}, failures, -1, failed))
	}

	summary := fmt.Sprintf("Best: %s  score=%s  evaluated=%d failed=%d degenerate=%d  %s",
		result.Best.Config.String(), formatSci(result.Best.Score),
		result.Evaluated, result.Failed, result.Degenerate, result.Duration.Round(time.Millisecond))
	if result.Stopped != "" {
		summary += "  stopped: " + result.Stopped
	}
	fmt.Fprintln(w, mutedStyle.Render(summary))
}

// writeMetricsTable prints the score and KPI spread of every material
func writeMetricsTable(w io.Writer, report *metrics.KPIReport) {
	materials := slices.Sorted(maps.Keys(report.Materials))
	rows := make([][]string, 0, len(materials))
	for _, name := range materials {
		m := report.Materials[name]
		score := m[metrics.MetricScore]
		if score == nil {
			continue
		}
		energy := "-"
		if e := m[metrics.MetricSwitchingEnergy]; e != nil {
			energy = formatSci(e.P50)
		}
		rows = append(rows, []string{
			name,
			strconv.FormatInt(score.Count, 10),
			formatSci(score.Mean),
			formatSci(score.Max),
			formatFixed(m[metrics.MetricT0].Mean, 6),
			formatSci(m[metrics.MetricContrast].Max),
			energy,
		})
	}
	fmt.Fprintln(w, titleStyle.Render("KPI statistics by material"))
	fmt.Fprintln(w, renderTable(
		[]string{"Material", "Evaluated", "Mean score", "Best score", "Mean T0", "Max contrast", "Median E [pJ]"},
		rows, -1, nil))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%.1f evaluations/s", report.EvaluationsPerSecond)))
}
