package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/nlo-screen/internal/simulator"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/config"
	"github.com/GoSim-25-26J-441/nlo-screen/pkg/logger"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nloscreen",
		Short: "Screen nonlinear-optical materials for all-optical activations",
		Long: `nloscreen simulates the intensity-dependent transmission of candidate
nonlinear-optical devices, derives switching KPIs and searches device
geometries for the best figure of merit.

Environment Variables:
  NLOSCREEN_CONFIG      Config file used when --config is not given
  NLOSCREEN_LOG_LEVEL   Log level override (debug, info, warn, error)
  NLOSCREEN_LOG_FORMAT  Log format override (json, text)
  NLOSCREEN_HTTP_ADDR   HTTP listen address for serve
  NLOSCREEN_GRPC_ADDR   gRPC listen address for serve`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides config and environment)")
	rootCmd.PersistentFlags().Bool("json", false, "Output JSON instead of tables")

	rootCmd.AddCommand(
		newVersionCmd(),
		newMaterialsCmd(),
		newSimulateCmd(),
		newSearchCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "nloscreen version %s\n", version)
			return nil
		},
	}
}

// app is the resolved configuration shared by every subcommand
type app struct {
	cfg *config.Config
	sim *simulator.Simulator
}

// loadRuntime resolves .env, the config file and environment overrides, then
// installs the logger. CLI logs go to stderr so stdout stays parseable.
func loadRuntime(cmd *cobra.Command) (*app, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	format := cfg.LogFormat
	if cmd.Name() != "serve" && os.Getenv(config.EnvLogFormat) == "" {
		format = "text"
	}
	logger.SetDefault(logger.NewWithFormat(format, cfg.LogLevel, cmd.ErrOrStderr()))

	sim, err := simulator.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, sim: sim}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
