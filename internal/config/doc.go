// Package config provides configuration loading and validation for the TPC
// power dashboard.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, each overriding
// the previous one:
//
//	1. Defaults (Default())
//	2. A YAML file (--config, TPC_CONFIG_FILE, ./config.yaml or ./configs/config.yaml)
//	3. A dotenv file (.env by default), which never overrides variables already set
//	4. Environment variables
//
// # Environment Variables
//
// All environment variables use the TPC_ prefix followed by the section name:
//
//	TPC_SERVER_PORT=8080
//	TPC_DATASET_PATH=/srv/tpc/clean.parquet
//	TPC_LOGGING_LEVEL=debug
//	TPC_DISPLAY_MAX_ROWS=500
//	TPC_TELEMETRY_ENABLE_TRACING=true
//
// # Usage
//
//	cfg, err := config.Load(config.Options{})
//	if err != nil {
//	    return err
//	}
//	if err := cfg.CheckDataset(); err != nil {
//	    return err // the dashboard cannot start without its dataset
//	}
package config
