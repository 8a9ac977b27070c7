// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/cohortlens/internal/app"
	"github.com/tomtom215/cohortlens/internal/models"
)

var (
	lcFlags        lifecycleFlags
	propertiesFile string

	peoplePeriod string
	peopleStatus string
	peopleOffset int
	peopleLimit  int
)

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Classify active persons per period as new, returning, resurrecting or dormant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTeam(); err != nil {
			return err
		}
		filter, err := lifecycleFilter()
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			res, err := a.DB.GetLifecycle(cmd.Context(), teamID, filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var lifecyclePeopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List the persons behind one lifecycle bucket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTeam(); err != nil {
			return err
		}
		filter, err := lifecycleFilter()
		if err != nil {
			return err
		}
		period, err := models.ParsePeriod(peoplePeriod)
		if err != nil {
			return fmt.Errorf("--period: %w", err)
		}
		status, err := models.ParseClassification(peopleStatus)
		if err != nil {
			return fmt.Errorf("--status: %w", err)
		}
		return withApp(func(a *app.App) error {
			limit := peopleLimit
			if limit <= 0 {
				limit = a.Config.Lifecycle.DefaultPageSize
			}
			page, err := a.DB.GetLifecyclePeople(cmd.Context(), teamID, filter, period, status, peopleOffset, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		})
	},
}

func lifecycleFilter() (models.Filter, error) {
	filter, err := buildFilter(lcFlags, time.Now())
	if err != nil {
		return models.Filter{}, err
	}
	if propertiesFile == "" {
		return filter, nil
	}
	data, err := os.ReadFile(propertiesFile)
	if err != nil {
		return models.Filter{}, err
	}
	if err := json.Unmarshal(data, &filter.Properties); err != nil {
		return models.Filter{}, fmt.Errorf("parse %s: %w", propertiesFile, err)
	}
	return filter, nil
}

func init() {
	rootCmd.AddCommand(lifecycleCmd)
	lifecycleCmd.AddCommand(lifecyclePeopleCmd)

	flags := lifecycleCmd.PersistentFlags()
	flags.StringVar(&lcFlags.event, "event", "", "event name to measure")
	flags.StringVar(&lcFlags.action, "action", "", "action id to measure")
	flags.StringVar(&lcFlags.name, "name", "", "series label prefix (defaults to the event or action)")
	flags.StringVar(&lcFlags.from, "from", "-7d", "first period: a date or a relative bound like -7d, -2w, mStart")
	flags.StringVar(&lcFlags.to, "to", "dStart", "last period: a date or a relative bound")
	flags.StringVar(&lcFlags.interval, "interval", "day", "period granularity: day, week or month")
	flags.StringVar(&propertiesFile, "properties-file", "", "JSON property group applied to events and persons")

	lifecyclePeopleCmd.Flags().StringVar(&peoplePeriod, "period", "", "period start (date or RFC3339)")
	lifecyclePeopleCmd.Flags().StringVar(&peopleStatus, "status", "", "new, returning, resurrecting or dormant")
	lifecyclePeopleCmd.Flags().IntVar(&peopleOffset, "offset", 0, "page offset")
	lifecyclePeopleCmd.Flags().IntVar(&peopleLimit, "limit", 0, "page size (default lifecycle.default_page_size)")
	_ = lifecyclePeopleCmd.MarkFlagRequired("period")
	_ = lifecyclePeopleCmd.MarkFlagRequired("status")
}
