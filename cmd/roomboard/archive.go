package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"roomboard/internal/lifecycle"
	"roomboard/internal/models"
)

var (
	selColumns []int64
	selCards   []string
)

var archiveCmd = &cobra.Command{Use: "archive", Short: "Browse, restore and purge archived items"}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived columns and cards of the active board",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		o, _, err := a.orchestrator(ctx)
		if err != nil {
			return err
		}
		arch, err := o.Archive(ctx)
		if err != nil {
			return err
		}
		if arch.Len() == 0 {
			a.say("The archive is empty.")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, c := range arch.Columns {
			fmt.Fprintf(tw, "column\t%d\t%s\n", c.ID, c.Title)
		}
		for _, c := range arch.Cards {
			fmt.Fprintf(tw, "card\t%s\t%s\tin column %d\n", c.PublicID, c.Title, c.ColumnID)
		}
		return tw.Flush()
	}),
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the selected archived columns and cards",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		return onSelection(ctx, a, (*lifecycle.Orchestrator).RestoreSelection)
	}),
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently delete the selected archived columns and cards",
	Args:  cobra.NoArgs,
	RunE: run(func(ctx context.Context, a *app, args []string) error {
		return onSelection(ctx, a, (*lifecycle.Orchestrator).HardDeleteSelection)
	}),
}

// onSelection fetches the archive fresh and applies fn to the --column/--card selection.
func onSelection(ctx context.Context, a *app, fn func(*lifecycle.Orchestrator, context.Context, models.Archive, lifecycle.Selection) (string, error)) error {
	o, _, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}
	arch, err := o.Archive(ctx)
	if err != nil {
		return err
	}
	msg, err := fn(o, ctx, arch, lifecycle.Selection{ColumnIDs: selColumns, CardIDs: selCards})
	a.say(msg)
	return err
}

func init() {
	for _, c := range []*cobra.Command{archiveRestoreCmd, archivePurgeCmd} {
		c.Flags().Int64SliceVar(&selColumns, "column", nil, "archived column id (repeatable)")
		c.Flags().StringSliceVar(&selCards, "card", nil, "archived card id (repeatable)")
	}
	archiveCmd.AddCommand(archiveListCmd, archiveRestoreCmd, archivePurgeCmd)
	rootCmd.AddCommand(archiveCmd)
}
