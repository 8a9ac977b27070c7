// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/cohortlens/internal/app"
	"github.com/tomtom215/cohortlens/internal/cohort"
	"github.com/tomtom215/cohortlens/internal/models"
)

var (
	cohortName        string
	cohortDescription string
	groupsFile        string
	cohortStatic      bool
	actorID           int64
	ingestKind        string
	ingestFile        string
)

// engineTrigger recalculates in-process right away.
type engineTrigger struct {
	engine *cohort.Engine
}

func (t engineTrigger) TriggerRecalculation(ctx context.Context, _, cohortID int64) error {
	_, err := t.engine.Recalculate(ctx, cohortID)
	return err
}

func newManager(a *app.App) *cohort.Manager {
	return cohort.NewManager(a.Store, a.Activity, engineTrigger{engine: a.Engine})
}

func actor() *int64 {
	if actorID <= 0 {
		return nil
	}
	return &actorID
}

func readGroups(path string) ([]models.Group, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return models.ParseGroups(data)
}

var cohortCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Manage, recalculate and ingest cohorts",
}

var cohortListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a team's cohorts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireTeam(); err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			cohorts, err := a.Store.ListCohorts(cmd.Context(), teamID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cohorts)
		})
	},
}

var cohortCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a dynamic cohort from a groups file, or an empty static cohort",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := readGroups(groupsFile)
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			c, err := newManager(a).Create(cmd.Context(), cohort.CreateRequest{
				TeamID:      teamID,
				Name:        cohortName,
				Description: cohortDescription,
				Groups:      groups,
				IsStatic:    cohortStatic,
				CreatedBy:   actor(),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var cohortGroupsCmd = &cobra.Command{
	Use:   "set-groups <cohort-id>",
	Short: "Replace a dynamic cohort's groups and recalculate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		groups, err := readGroups(groupsFile)
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			c, err := newManager(a).UpdateGroups(cmd.Context(), teamID, id, groups, actor())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var cohortRenameCmd = &cobra.Command{
	Use:   "rename <cohort-id>",
	Short: "Change a cohort's name and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			c, err := newManager(a).Rename(cmd.Context(), teamID, id, cohortName, cohortDescription, actor())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		})
	},
}

var cohortDeleteCmd = &cobra.Command{
	Use:   "delete <cohort-id>",
	Short: "Soft-delete a cohort",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			if err := newManager(a).SoftDelete(cmd.Context(), teamID, id, actor()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted cohort %d\n", id)
			return nil
		})
	},
}

var cohortMembersCmd = &cobra.Command{
	Use:   "members <cohort-id>",
	Short: "Print the person ids of a cohort's current version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			c, err := a.Store.GetCohort(cmd.Context(), teamID, id)
			if err != nil {
				return err
			}
			members, err := a.Store.CohortMembers(cmd.Context(), c.ID, c.Version)
			if err != nil {
				return err
			}
			for _, m := range members {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		})
	},
}

var cohortRecalculateCmd = &cobra.Command{
	Use:   "recalculate <cohort-id>",
	Short: "Recalculate a dynamic cohort now, in this process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(func(a *app.App) error {
			res, err := a.Engine.Recalculate(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var cohortIngestCmd = &cobra.Command{
	Use:   "ingest <cohort-id> [identifier...]",
	Short: "Add identifiers to a static cohort from arguments or --file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		kind := models.IdentifierKind(ingestKind)
		if !kind.Valid() {
			return fmt.Errorf("--kind must be %q or %q", models.IdentifierDistinctID, models.IdentifierPersonID)
		}

		identifiers := args[1:]
		if ingestFile != "" {
			in, err := openInput(ingestFile)
			if err != nil {
				return err
			}
			fromFile, err := readIdentifiers(in)
			_ = in.Close()
			if err != nil {
				return err
			}
			identifiers = append(identifiers, fromFile...)
		}
		if len(identifiers) == 0 {
			return fmt.Errorf("no identifiers given")
		}

		return withApp(func(a *app.App) error {
			res, err := a.Engine.IngestStaticList(cmd.Context(), id, identifiers, kind)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Failed {
				return fmt.Errorf("ingestion into cohort %d failed: %w", id, res.Err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cohortCmd)
	cohortCmd.AddCommand(cohortListCmd, cohortCreateCmd, cohortGroupsCmd, cohortRenameCmd,
		cohortDeleteCmd, cohortMembersCmd, cohortRecalculateCmd, cohortIngestCmd)

	cohortCmd.PersistentFlags().Int64Var(&actorID, "user", 0, "user id recorded in the activity log")

	cohortCreateCmd.Flags().StringVar(&cohortName, "name", "", "cohort name")
	cohortCreateCmd.Flags().StringVar(&cohortDescription, "description", "", "cohort description")
	cohortCreateCmd.Flags().StringVar(&groupsFile, "groups-file", "", "JSON array of cohort groups")
	cohortCreateCmd.Flags().BoolVar(&cohortStatic, "static", false, "create a static cohort filled by ingestion")
	_ = cohortCreateCmd.MarkFlagRequired("name")

	cohortGroupsCmd.Flags().StringVar(&groupsFile, "groups-file", "", "JSON array of cohort groups")
	_ = cohortGroupsCmd.MarkFlagRequired("groups-file")

	cohortRenameCmd.Flags().StringVar(&cohortName, "name", "", "new name")
	cohortRenameCmd.Flags().StringVar(&cohortDescription, "description", "", "new description")
	_ = cohortRenameCmd.MarkFlagRequired("name")

	cohortIngestCmd.Flags().StringVar(&ingestKind, "kind", string(models.IdentifierDistinctID), "identifier kind: distinct_id or person_id")
	cohortIngestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "file with one identifier per line (- for stdin)")
}
