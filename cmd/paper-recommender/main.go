// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-recommender CLI and server.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/secrets"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is replaced in PersistentPreRunE.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "paper-recommender",
	Short: "Recommend academic papers for research projects",
	Long: `paper-recommender recommends academic papers for a research project.
A query is checked for scope, reviewed by a quality-control step, matched
against the project's description in a vector index seeded from OpenAlex,
and filtered by any bibliometric constraints it states.

Run "serve" for the HTTP API, or use the project, recommend, more and rate
subcommands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, logger)
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
			logger.Debug("loaded secrets", zap.Strings("keys", keys))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-recommender.yaml or ~/.config/paper-recommender/paper-recommender.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of secret files")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the SQLite database (overrides store.data_dir)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	_ = viper.BindPFlag("store.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-recommender")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-recommender"))
		}
	}

	viper.SetEnvPrefix("PAPER_RECOMMENDER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds a production logger writing to stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return l, nil
}

// loadConfig merges the config file and environment over the defaults and
// fills credentials from loaded secrets.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = types.DefaultConfig().Store.DataDir
	}
	secrets.Apply(&cfg, loadedSecrets)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
