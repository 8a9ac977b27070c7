// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cohortlens/internal/app"
	"github.com/tomtom215/cohortlens/internal/cohort"
)

var activityLimit int

var activityCmd = &cobra.Command{
	Use:   "activity <cohort-id>",
	Short: "Show a cohort's activity log, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTeam(); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			entries, err := a.Activity.Load(cmd.Context(), teamID, cohort.ItemType, strconv.FormatInt(id, 10), activityLimit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		})
	},
}

func init() {
	rootCmd.AddCommand(activityCmd)
	activityCmd.Flags().IntVar(&activityLimit, "limit", 0, "maximum entries (default 10)")
}
