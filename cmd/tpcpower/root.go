package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"tpcpower/internal/config"
	"tpcpower/internal/infrastructure"
	"tpcpower/pkg/contracts"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	envFile    string
	dataset    string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "tpcpower",
		Short: "Browse and export TPC power generation readings",
		Long: `tpcpower serves an interactive dashboard over a columnar snapshot of
power plant readings. Readings are filtered by date, time of day, plant type
and site, summed per timestamp and exported as CSV, Parquet or Excel.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       contracts.Version,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return infrastructure.CloseLogFile()
		},
	}
	rootCmd.SetVersionTemplate(contracts.GetVersionInfo().String() + "\n")

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "dotenv file (default is ./.env)")
	rootCmd.PersistentFlags().StringVar(&flags.dataset, "dataset", "", "dataset file, overrides dataset.path")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(flags),
		newConvertCmd(flags),
		newQueryCmd(flags),
	)
	return rootCmd
}

// loadConfig reads the configuration and applies the flag overrides
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigFile: f.configFile, EnvFile: f.envFile})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if f.dataset != "" {
		cfg.Dataset.Path = f.dataset
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := cfg.ResolveDatasetPath(); err != nil {
		return nil, fmt.Errorf("resolving dataset path: %w", err)
	}
	return cfg, nil
}

// setup loads the configuration and the process logger
func (f *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, logger, nil
}
