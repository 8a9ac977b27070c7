// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cohortlens/internal/eventprocessor"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/models"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Publish work for the worker over NATS instead of running it here",
}

var triggerRecalculateCmd = &cobra.Command{
	Use:   "recalculate <cohort-id>...",
	Short: "Ask the worker to recalculate cohorts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTeam(); err != nil {
			return err
		}
		ids := make([]int64, 0, len(args))
		for _, arg := range args {
			id, err := parseID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return withPublisher(func(p *eventprocessor.Publisher) error {
			for _, id := range ids {
				if err := p.TriggerRecalculation(cmd.Context(), teamID, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Triggered recalculation of cohort %d\n", id)
			}
			return nil
		})
	},
}

var triggerIngestCmd = &cobra.Command{
	Use:   "ingest <cohort-id>",
	Short: "Ask the worker to ingest identifiers from --file into a static cohort",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTeam(); err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		in, err := openInput(ingestFile)
		if err != nil {
			return err
		}
		identifiers, err := readIdentifiers(in)
		_ = in.Close()
		if err != nil {
			return err
		}
		return withPublisher(func(p *eventprocessor.Publisher) error {
			if err := p.TriggerIngestion(cmd.Context(), teamID, id, identifiers, models.IdentifierKind(ingestKind)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Triggered ingestion of %d identifier(s) into cohort %d\n", len(identifiers), id)
			return nil
		})
	},
}

func withPublisher(fn func(p *eventprocessor.Publisher) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.NATS.Enabled {
		return fmt.Errorf("triggers need NATS (NATS_ENABLED=true); use 'cohortctl cohort' to run work in-process")
	}

	transport, err := eventprocessor.NewTransport(&cfg.NATS, logging.NewWatermillAdapter())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := transport.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(eventprocessor.NewPublisher(transport.Publisher))
}

func init() {
	rootCmd.AddCommand(triggerCmd)
	triggerCmd.AddCommand(triggerRecalculateCmd, triggerIngestCmd)

	triggerIngestCmd.Flags().StringVar(&ingestKind, "kind", string(models.IdentifierDistinctID), "identifier kind: distinct_id or person_id")
	triggerIngestCmd.Flags().StringVarP(&ingestFile, "file", "f", "-", "file with one identifier per line (- for stdin)")
}
