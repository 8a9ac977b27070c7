// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cohortlens/internal/app"
)

var staleAfter time.Duration

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List cohorts stuck in a calculation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			after := staleAfter
			if after <= 0 {
				after = a.Config.Cohort.StaleAfter
			}
			stale, err := a.Store.ListStaleCalculations(cmd.Context(), time.Now().Add(-after))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stale)
		})
	},
}

var staleResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear is_calculating on stuck cohorts (one watchdog sweep)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			n, err := a.Watchdog.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d stuck calculation(s)\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(staleCmd)
	staleCmd.AddCommand(staleResetCmd)
	staleCmd.Flags().DurationVar(&staleAfter, "older-than", 0, "started before now minus this (default cohort.stale_after)")
}
