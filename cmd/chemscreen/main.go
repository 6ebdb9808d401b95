// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the chemscreen CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/chemscreen/internal/secrets"
	"github.com/pdiddy/chemscreen/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, otherwise the secret value for
// key when one was loaded.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the chemscreen CLI.
var rootCmd = &cobra.Command{
	Use:   "chemscreen",
	Short: "Batch literature screening for chemical lists",
	Long: `chemscreen screens lists of chemicals against PubMed. For each chemical it
runs a rate-limited literature search, scores data availability on a 0-100
scale, and flags publication trends. Runs are cached and recorded as sessions
so a screen can be revisited or exported later.

The main workflow is: chemscreen run chemicals.csv, then chemscreen export
with the session ID printed at the end of the run.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./chemscreen.yaml or ~/.config/chemscreen/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chemscreen")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "chemscreen"))
		}
	}

	viper.SetEnvPrefix("CHEMSCREEN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig merges defaults, the config file, and loaded secrets.
func loadConfig() types.Config {
	cfg := types.DefaultConfig()

	if v := viper.GetDuration("pubmed.timeout"); v > 0 {
		cfg.PubMed.Timeout = v
	}
	if v := viper.GetString("pubmed.email"); v != "" {
		cfg.PubMed.Email = v
	}
	if v := viper.GetInt("pubmed.max_retries"); v > 0 {
		cfg.PubMed.MaxRetries = v
	}
	cfg.PubMed.APIKey = secretDefault(secrets.PubMedAPIKey, viper.GetString("pubmed.api_key"))
	cfg.PubMed.Email = secretDefault(secrets.PubMedEmail, cfg.PubMed.Email)

	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := viper.GetDuration("cache.ttl"); v > 0 {
		cfg.Cache.TTL = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}

	if v := viper.GetString("sessions.dir"); v != "" {
		cfg.Sessions.Dir = v
	}
	if v := viper.GetInt("sessions.cleanup_days"); v > 0 {
		cfg.Sessions.CleanupDays = v
	}

	if v := viper.GetInt("batch.concurrency"); v > 0 {
		cfg.Batch.Concurrency = v
	}
	if v := viper.GetInt("batch.max_batch_size"); v > 0 {
		cfg.Batch.MaxBatchSize = v
	}

	if v := viper.GetString("export.dir"); v != "" {
		cfg.Export.Dir = v
	}
	if viper.IsSet("export.include_abstracts") {
		cfg.Export.IncludeAbstracts = viper.GetBool("export.include_abstracts")
	}

	if v := viper.GetInt("search.date_range_years"); v > 0 {
		cfg.Search.DateRangeYears = v
	}
	if v := viper.GetInt("search.max_results"); v > 0 {
		cfg.Search.MaxResults = v
	}
	if viper.IsSet("search.include_reviews") {
		cfg.Search.IncludeReviews = viper.GetBool("search.include_reviews")
	}

	return cfg
}

// buildLogger returns a debug logger when --verbose is set, otherwise a
// production logger writing to stderr.
func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	return cfg.Build()
}

// timestamp formats t for human-facing output.
func timestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
