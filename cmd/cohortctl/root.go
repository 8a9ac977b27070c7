// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cohortlens/internal/app"
	"github.com/tomtom215/cohortlens/internal/config"
)

var (
	cfgFile string
	teamID  int64
)

var rootCmd = &cobra.Command{
	Use:   "cohortctl",
	Short: "Operate on Cohortlens lifecycle queries and cohorts",
	Long: `cohortctl talks to the analytical and transactional stores directly.

Configuration is read like the worker's: defaults, then the YAML file given by
--config (or CONFIG_PATH), then environment variables.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: CONFIG_PATH or ./config.yaml)")
	rootCmd.PersistentFlags().Int64Var(&teamID, "team", 0, "team id")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFromPath(cfgFile)
	}
	return config.LoadWithKoanf()
}

// withApp opens the stores for the duration of fn.
func withApp(fn func(a *app.App) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app.InitLogging(cfg.Logging)

	a, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(a)
}

func requireTeam() error {
	if teamID <= 0 {
		return fmt.Errorf("please provide a team id via --team")
	}
	return nil
}
